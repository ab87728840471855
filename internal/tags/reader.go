// Package tags reads embedded metadata from local audio files.
package tags

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/dhowden/tag"
	flac "github.com/go-flac/go-flac"
	"github.com/go-flac/flacvorbis"
	"go.uber.org/zap"

	"homoxion/internal/core"
)

const (
	FormatMP3  = "mp3"
	FormatFLAC = "flac"
	FormatMP4  = "mp4"
	FormatOgg  = "ogg"
)

// id3Keys maps ID3v2 text frames to lower-case tag names. TDRC (v2.4) is
// listed before TYER (v2.3) so the newer date frame wins.
var id3Keys = []struct {
	frameID string
	name    string
}{
	{"TIT2", "title"},
	{"TPE1", "artist"},
	{"TPE2", "albumartist"},
	{"TALB", "album"},
	{"TCOM", "composer"},
	{"TCON", "genre"},
	{"TCOP", "copyright"},
	{"TPUB", "organization"},
	{"TSRC", "isrc"},
	{"TRCK", "tracknumber"},
	{"TDRC", "date"},
	{"TYER", "date"},
}

// mp4Keys maps iTunes atoms to the same lower-case names. Free-form "----"
// atoms keep their own name, lower-cased.
var mp4Keys = map[string]string{
	"\xa9nam": "title",
	"\xa9ART": "artist",
	"\xa9art": "artist",
	"aART":    "albumartist",
	"\xa9alb": "album",
	"\xa9wrt": "composer",
	"\xa9gen": "genre",
	"\xa9day": "date",
	"\xa9cmt": "comment",
	"\xa9grp": "grouping",
	"cprt":    "copyright",
	"keyw":    "keyword",
}

type Reader struct {
	logger *zap.Logger
}

func NewReader(logger *zap.Logger) *Reader {
	return &Reader{logger: logger.Named("tags")}
}

// ReadTags returns the tags of the file at path. Missing files, non-regular files
// and unknown containers produce an empty record and no error. The read is
// abandoned when ctx ends.
func (r *Reader) ReadTags(ctx context.Context, path string) (*core.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record := &core.FileRecord{Path: path, Tags: map[string]string{}}

	// Stat never blocks on FIFOs or devices, opening them might.
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		r.logger.Debug("Audio file not readable", zap.String("path", path), zap.Error(err))
		return record, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.readFile(record)
	}()

	select {
	case <-done:
		return record, nil
	case <-ctx.Done():
		r.logger.Warn("Tag read abandoned", zap.String("path", path), zap.Error(ctx.Err()))
		return nil, ctx.Err()
	}
}

func (r *Reader) readFile(record *core.FileRecord) {
	format, err := detectFormat(record.Path)
	if err != nil {
		r.logger.Debug("Could not detect audio format", zap.String("path", record.Path), zap.Error(err))
		return
	}

	tags := map[string]string{}
	switch format {
	case FormatMP3:
		err = readID3(record.Path, tags)
	case FormatFLAC:
		err = readVorbis(record.Path, tags)
	case FormatMP4, FormatOgg:
		err = readTagged(record.Path, tags)
	default:
		return
	}

	if err != nil {
		r.logger.Debug("Failed to parse tags",
			zap.String("path", record.Path),
			zap.String("format", format),
			zap.Error(err))
		return
	}

	record.Format = format
	record.Tags = tags
}

// detectFormat sniffs the container from its magic bytes, then the extension.
func detectFormat(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	header := make([]byte, 8)
	n, err := io.ReadFull(f, header)
	if err != nil && n == 0 {
		return "", fmt.Errorf("read header: %w", err)
	}
	header = header[:n]

	switch {
	case bytes.HasPrefix(header, []byte("fLaC")):
		return FormatFLAC, nil
	case bytes.HasPrefix(header, []byte("ID3")):
		return FormatMP3, nil
	case bytes.HasPrefix(header, []byte("OggS")):
		return FormatOgg, nil
	case len(header) == 8 && string(header[4:8]) == "ftyp":
		return FormatMP4, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return FormatMP3, nil
	case ".flac":
		return FormatFLAC, nil
	case ".m4a", ".m4b", ".mp4", ".alac":
		return FormatMP4, nil
	case ".ogg", ".oga", ".opus":
		return FormatOgg, nil
	}
	return "", nil
}

// readTagged reads MP4 atoms and Ogg Vorbis comments through dhowden/tag.
func readTagged(path string, tags map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return fmt.Errorf("read tags: %w", err)
	}

	mp4 := meta.Format() == tag.MP4
	for name, raw := range meta.Raw() {
		value, ok := raw.(string)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		key := strings.ToLower(name)
		// the encoder string of a Vorbis stream, not a tag
		if key == "vendor" && !mp4 {
			continue
		}
		if mp4 {
			if mapped, ok := mp4Keys[name]; ok {
				key = mapped
			} else if strings.HasPrefix(name, "\xa9") {
				continue
			}
		}
		tags[key] = strings.TrimSpace(value)
	}
	return nil
}

func readID3(path string, tags map[string]string) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open id3 tag: %w", err)
	}
	defer tag.Close()

	for _, key := range id3Keys {
		if _, seen := tags[key.name]; seen {
			continue
		}
		if value := strings.TrimSpace(tag.GetTextFrame(key.frameID).Text); value != "" {
			tags[key.name] = value
		}
	}

	var comments []string
	for _, frame := range tag.GetFrames(tag.CommonID("Comments")) {
		if comment, ok := frame.(id3v2.CommentFrame); ok && strings.TrimSpace(comment.Text) != "" {
			comments = append(comments, strings.TrimSpace(comment.Text))
		}
	}
	if len(comments) > 0 {
		tags["comment"] = strings.Join(comments, "; ")
	}

	return nil
}

func readVorbis(path string, tags map[string]string) error {
	file, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse flac: %w", err)
	}

	for _, block := range file.Meta {
		if block.Type != flac.VorbisComment {
			continue
		}

		comments, err := flacvorbis.ParseFromMetaDataBlock(*block)
		if err != nil {
			return fmt.Errorf("parse vorbis comment: %w", err)
		}

		for _, entry := range comments.Comments {
			name, value, ok := strings.Cut(entry, "=")
			if !ok {
				continue
			}
			name = strings.ToLower(strings.TrimSpace(name))
			value = strings.TrimSpace(value)
			if name == "" || value == "" {
				continue
			}
			if existing, seen := tags[name]; seen {
				tags[name] = existing + "; " + value
			} else {
				tags[name] = value
			}
		}
	}

	return nil
}
