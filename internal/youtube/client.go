// Package youtube reads video metadata from the YouTube Data API.
package youtube

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"homoxion/internal/core"
)

type Client struct {
	service *youtube.Service
	logger  *zap.Logger
}

// NewClient builds a Data API client authenticated with an API key. A non-empty
// endpoint overrides the public API root.
func NewClient(ctx context.Context, config *core.YouTubeConfig, logger *zap.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("youtube api key: %w", core.ErrNotConfigured)
	}

	opts := []option.ClientOption{option.WithAPIKey(config.APIKey)}
	if config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(config.Endpoint))
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	return &Client{
		service: service,
		logger:  logger.Named("youtube"),
	}, nil
}

// Search returns the ID of the best video match for query, or "" when nothing matched.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	resp, err := c.service.Search.List([]string{"id"}).
		Q(query).
		Type("video").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("youtube search: %w", err)
	}

	for _, item := range resp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			return item.Id.VideoId, nil
		}
	}

	c.logger.Debug("No video matched search", zap.String("query", query))
	return "", nil
}

// GetByID returns snippet and status fields of videoID. An unknown ID yields an empty record.
func (c *Client) GetByID(ctx context.Context, videoID string) (*core.YouTubeRecord, error) {
	if videoID == "" {
		return &core.YouTubeRecord{}, nil
	}

	resp, err := c.service.Videos.List([]string{"snippet", "status"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube videos.list: %w", err)
	}

	if len(resp.Items) == 0 {
		return &core.YouTubeRecord{}, nil
	}

	return convertVideo(resp.Items[0]), nil
}

func convertVideo(video *youtube.Video) *core.YouTubeRecord {
	record := &core.YouTubeRecord{VideoID: video.Id}
	if video.Snippet != nil {
		record.Title = video.Snippet.Title
		record.Description = video.Snippet.Description
		record.Author = video.Snippet.ChannelTitle
		record.PublishedAt = video.Snippet.PublishedAt
	}
	if video.Status != nil {
		record.License = video.Status.License
		record.UploadStatus = video.Status.UploadStatus
	}
	return record
}
