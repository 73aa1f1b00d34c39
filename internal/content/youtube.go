package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const YouTubeAPIBase = "https://www.googleapis.com/youtube/v3"

type VideoProvider interface {
	SearchVideos(ctx context.Context, query string, limit int) ([]Item, error)
}

type YouTubeClient struct {
	apiKey  string
	apiBase string
	http    *http.Client
}

func NewYouTubeClient(apiKey, apiBase string, client *http.Client) *YouTubeClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &YouTubeClient{apiKey: apiKey, apiBase: strings.TrimRight(apiBase, "/"), http: client}
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Thumbnails  struct {
				High *struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

// SearchVideos returns embeddable, syndicated, strictly safe English
// results only.
func (c *YouTubeClient) SearchVideos(ctx context.Context, query string, limit int) ([]Item, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", query)
	q.Set("part", "snippet")
	q.Set("type", "video")
	q.Set("maxResults", strconv.Itoa(limit))
	q.Set("videoEmbeddable", "true")
	q.Set("videoSyndicated", "true")
	q.Set("relevanceLanguage", "en")
	q.Set("safeSearch", "strict")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube search: status %d", resp.StatusCode)
	}

	var body youtubeSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode youtube search: %w", err)
	}

	items := make([]Item, 0, len(body.Items))
	for _, it := range body.Items {
		thumb := "https://placehold.co/120x80/cccccc/ffffff?text=Video"
		if it.Snippet.Thumbnails.High != nil {
			thumb = it.Snippet.Thumbnails.High.URL
		}
		items = append(items, Item{
			ID:          it.ID.VideoID,
			Title:       it.Snippet.Title,
			Description: it.Snippet.Description,
			Category:    "YouTube Video",
			URL:         "https://www.youtube.com/embed/" + it.ID.VideoID,
			Thumbnail:   thumb,
		})
	}
	return items, nil
}
