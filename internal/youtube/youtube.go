// Package youtube fetches playlist data from the YouTube Data API v3.
package youtube

import (
	"context"
	"fmt"
	"regexp"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/joshijoe05/records-backend/internal/model"
)

// DefaultMaxResults is the largest page the API allows. Only the first page
// is read.
const DefaultMaxResults = 50

var playlistIDPattern = regexp.MustCompile(`list=([\w-]+)`)

// ExtractPlaylistID pulls the playlist id out of a YouTube URL such as
// https://www.youtube.com/playlist?list=PLxyz or a watch URL with &list=.
func ExtractPlaylistID(url string) (string, bool) {
	m := playlistIDPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

type Config struct {
	APIKey string
	// Endpoint overrides the API base URL; empty means the public API.
	Endpoint   string
	MaxResults int64
}

// Client reads playlists with an API key.
type Client struct {
	svc        *yt.Service
	maxResults int64
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube: creating service: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 || maxResults > DefaultMaxResults {
		maxResults = DefaultMaxResults
	}
	return &Client{svc: svc, maxResults: maxResults}, nil
}

// PlaylistItems returns the first page of videos of a playlist, in playlist order.
func (c *Client) PlaylistItems(ctx context.Context, playlistID string) ([]model.CourseItem, error) {
	resp, err := c.svc.PlaylistItems.List([]string{"snippet"}).
		PlaylistId(playlistID).
		MaxResults(c.maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube: listing items of playlist %s: %w", playlistID, err)
	}

	items := make([]model.CourseItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		s := it.Snippet
		if s == nil {
			continue
		}
		item := model.CourseItem{
			Title:        s.Title,
			Description:  s.Description,
			Position:     s.Position,
			ChannelTitle: s.ChannelTitle,
			PublishedAt:  s.PublishedAt,
			Thumbnails:   convertThumbnails(s.Thumbnails),
		}
		if s.ResourceId != nil {
			item.VideoID = s.ResourceId.VideoId
		}
		items = append(items, item)
	}
	return items, nil
}

// PlaylistDetails returns the playlist's own snippet, or nil when the API
// reports no such playlist.
func (c *Client) PlaylistDetails(ctx context.Context, playlistID string) (*model.CourseMetadata, error) {
	resp, err := c.svc.Playlists.List([]string{"snippet"}).
		Id(playlistID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube: getting playlist %s: %w", playlistID, err)
	}

	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, nil
	}
	s := resp.Items[0].Snippet
	return &model.CourseMetadata{
		Title:        s.Title,
		Description:  s.Description,
		ChannelID:    s.ChannelId,
		ChannelTitle: s.ChannelTitle,
		PublishedAt:  s.PublishedAt,
		Thumbnails:   convertThumbnails(s.Thumbnails),
	}, nil
}

func convertThumbnails(d *yt.ThumbnailDetails) map[string]model.Thumbnail {
	out := map[string]model.Thumbnail{}
	if d == nil {
		return out
	}
	for name, t := range map[string]*yt.Thumbnail{
		"default":  d.Default,
		"medium":   d.Medium,
		"high":     d.High,
		"standard": d.Standard,
		"maxres":   d.Maxres,
	} {
		if t != nil {
			out[name] = model.Thumbnail{URL: t.Url, Width: t.Width, Height: t.Height}
		}
	}
	return out
}
