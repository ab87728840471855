// Package render prints aggregated results as localized tables or JSON.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"homoxion/internal/core"
	"homoxion/internal/i18n"
)

const (
	valueWidthMax = 80
	scoreDecimals = 4
)

// Renderer writes results to out in the configured format.
type Renderer struct {
	out      io.Writer
	format   string
	loc      *i18n.Localizer
	colorize bool
}

// New creates a renderer. Colour is used only for text output on a terminal.
func New(out io.Writer, format, language string) *Renderer {
	if format == "" {
		format = core.FormatText
	}
	return &Renderer{
		out:      out,
		format:   format,
		loc:      i18n.NewLocalizer(language),
		colorize: format == core.FormatText && shouldColorize(out),
	}
}

// Result writes a single result.
func (r *Renderer) Result(res *core.Result) error {
	if r.format == core.FormatJSON {
		return r.writeJSON(res)
	}
	_, err := io.WriteString(r.out, r.resultText(res))
	return err
}

type batchEntry struct {
	Request   string `json:"request"`
	Duplicate bool   `json:"duplicate,omitempty"`
	*core.Result
}

// Batch writes every batch entry in input order.
func (r *Renderer) Batch(results []core.BatchResult) error {
	if r.format == core.FormatJSON {
		entries := make([]batchEntry, 0, len(results))
		for _, br := range results {
			entries = append(entries, batchEntry{
				Request:   br.Request.Query,
				Duplicate: br.Duplicate,
				Result:    br.Result,
			})
		}
		return r.writeJSON(entries)
	}

	var b strings.Builder
	for i, br := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(r.heading(r.loc.T("format.batch_header", i+1, len(results))))
		b.WriteString(r.loc.T("format.request", br.Request.Query) + "\n")
		if br.Duplicate || br.Result == nil {
			b.WriteString(r.loc.T("format.duplicate") + "\n")
			continue
		}
		b.WriteString(r.resultText(br.Result))
	}
	_, err := io.WriteString(r.out, b.String())
	return err
}

func (r *Renderer) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

func (r *Renderer) resultText(res *core.Result) string {
	var b strings.Builder

	if res.Spotify != nil {
		b.WriteString(r.section("section.spotify", res.Spotify.IsEmpty(), func() string {
			return r.fields([][2]string{
				{"field.name", res.Spotify.Name},
				{"field.artists", res.Spotify.Artists},
				{"field.album", res.Spotify.Album},
				{"field.release_date", res.Spotify.ReleaseDate},
				{"field.url", res.Spotify.ExternalURL},
			})
		}))
	}

	if res.YouTube != nil {
		b.WriteString(r.section("section.youtube", res.YouTube.IsEmpty(), func() string {
			return r.fields([][2]string{
				{"field.video_id", res.YouTube.VideoID},
				{"field.title", res.YouTube.Title},
				{"field.author", res.YouTube.Author},
				{"field.published", res.YouTube.PublishedAt},
				{"field.license", res.YouTube.License},
				{"field.upload_status", res.YouTube.UploadStatus},
				{"field.description", res.YouTube.Description},
			})
		}))
	}

	if res.Google != nil {
		b.WriteString(r.section("section.google", res.Google.IsEmpty(), func() string {
			rows := make([][]string, 0, len(res.Google.Results))
			for _, hit := range res.Google.Results {
				rows = append(rows, []string{hit.Title, hit.Link})
			}
			return r.table([]string{r.loc.T("field.title"), r.loc.T("field.link")}, rows)
		}))
	}

	if res.Scrape != nil {
		b.WriteString(r.section("section.scrape", res.Scrape.IsEmpty(), func() string {
			rows := make([][]string, 0, len(res.Scrape.Endpoints))
			for _, endpoint := range res.Scrape.Endpoints {
				status := endpoint.Error
				if status == "" {
					status = strconv.Itoa(endpoint.Status)
				}
				evidence := endpoint.LicenseURL
				if evidence == "" {
					evidence = endpoint.Title
				}
				rows = append(rows, []string{endpoint.URL, status, r.yesNo(endpoint.Matched), evidence})
			}
			summary := r.fields([][2]string{
				{"field.term", res.Scrape.Term},
				{"field.matched", r.yesNo(res.Scrape.Matched)},
			})
			return summary + r.table([]string{
				r.loc.T("field.endpoint"),
				r.loc.T("field.status"),
				r.loc.T("field.matched"),
				r.loc.T("field.evidence"),
			}, rows)
		}))
	}

	if res.File != nil {
		b.WriteString(r.section("section.file", res.File.IsEmpty(), func() string {
			names := make([]string, 0, len(res.File.Tags))
			for name := range res.File.Tags {
				names = append(names, name)
			}
			sort.Strings(names)
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				rows = append(rows, []string{name, res.File.Tags[name]})
			}
			summary := r.fields([][2]string{
				{"field.path", res.File.Path},
				{"field.format", res.File.Format},
			})
			return summary + r.table([]string{r.loc.T("field.tag"), r.loc.T("field.value")}, rows)
		}))
	}

	if res.NLP != nil {
		b.WriteString(r.section("section.nlp", res.NLP.IsEmpty(), func() string {
			rows := make([][]string, 0, len(res.NLP.Labels))
			for _, label := range res.NLP.Labels {
				rows = append(rows, []string{label.Label, strconv.FormatFloat(label.Score, 'f', scoreDecimals, 64)})
			}
			return r.table([]string{r.loc.T("field.label"), r.loc.T("field.score")}, rows)
		}))
	}

	b.WriteString(r.heading(r.loc.T("section.verdict")))
	b.WriteString(r.verdict(res.Verdict) + "\n")
	if res.Source == core.SourceCache {
		b.WriteString(r.loc.T("format.from_cache") + "\n")
	}

	return b.String()
}

func (r *Renderer) section(titleKey string, empty bool, body func() string) string {
	content := r.loc.T("format.empty") + "\n"
	if !empty {
		content = body()
	}
	return r.heading(r.loc.T(titleKey)) + content + "\n"
}

func (r *Renderer) heading(title string) string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	if r.colorize {
		line = text.Colors{text.Bold, text.FgBlue}.Sprint(line)
	}
	return line + "\n"
}

// fields renders label/value pairs, skipping blank values.
func (r *Renderer) fields(pairs [][2]string) string {
	tw := r.newWriter()
	for _, pair := range pairs {
		if strings.TrimSpace(pair[1]) == "" {
			continue
		}
		tw.AppendRow(table.Row{r.loc.T(pair[0]), pair[1]})
	}
	if tw.Length() == 0 {
		return ""
	}
	return tw.Render() + "\n"
}

func (r *Renderer) table(headers []string, rows [][]string) string {
	tw := r.newWriter()

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		tr := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				tr[i] = row[i]
			} else {
				tr[i] = ""
			}
		}
		tw.AppendRow(tr)
	}

	return tw.Render() + "\n"
}

func (r *Renderer) newWriter() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	configs := make([]table.ColumnConfig, 0, 4)
	for i := 1; i <= 4; i++ {
		configs = append(configs, table.ColumnConfig{
			Number:           i,
			Align:            text.AlignLeft,
			AlignHeader:      text.AlignLeft,
			WidthMax:         valueWidthMax,
			WidthMaxEnforcer: text.WrapSoft,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw
}

func (r *Renderer) yesNo(v bool) string {
	if v {
		return r.loc.T("format.yes")
	}
	return r.loc.T("format.no")
}

func (r *Renderer) verdict(v core.Verdict) string {
	label := string(v)
	if !r.colorize {
		return label
	}
	switch v {
	case core.VerdictNonCopyright:
		return text.Colors{text.Bold, text.FgGreen}.Sprint(label)
	case core.VerdictCreativeCommons:
		return text.Colors{text.Bold, text.FgYellow}.Sprint(label)
	default:
		return text.Colors{text.Bold, text.FgRed}.Sprint(label)
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
