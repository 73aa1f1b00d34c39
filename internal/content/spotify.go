package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"
	SpotifyAPIBase  = "https://api.spotify.com/v1"
)

var ErrNotConfigured = errors.New("provider not configured")

type MusicProvider interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]Item, error)
}

// SpotifyClient searches tracks with an app-only client-credentials
// token. The oauth2 token source caches and refreshes the token.
type SpotifyClient struct {
	http    *http.Client
	apiBase string
}

// NewSpotifyClient returns a client that authenticates against tokenURL
// and queries apiBase. base is the transport used for both; nil means
// http.DefaultClient.
func NewSpotifyClient(clientID, clientSecret, tokenURL, apiBase string, base *http.Client) *SpotifyClient {
	if clientID == "" || clientSecret == "" {
		return &SpotifyClient{}
	}
	if base == nil {
		base = http.DefaultClient
	}
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	return &SpotifyClient{
		http:    cfg.Client(ctx),
		apiBase: strings.TrimRight(apiBase, "/"),
	}
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Name   string `json:"name"`
				Images []struct {
					URL string `json:"url"`
				} `json:"images"`
			} `json:"album"`
		} `json:"items"`
	} `json:"tracks"`
}

func (c *SpotifyClient) SearchTracks(ctx context.Context, query string, limit int) ([]Item, error) {
	if c.http == nil {
		return nil, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spotify search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spotify search: status %d", resp.StatusCode)
	}

	var body spotifySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode spotify search: %w", err)
	}

	items := make([]Item, 0, len(body.Tracks.Items))
	for _, t := range body.Tracks.Items {
		artists := make([]string, len(t.Artists))
		for i, a := range t.Artists {
			artists[i] = a.Name
		}
		thumb := "https://placehold.co/120x80/cccccc/ffffff?text=Music"
		if len(t.Album.Images) > 0 {
			thumb = t.Album.Images[0].URL
		}
		items = append(items, Item{
			ID:          t.ID,
			Title:       t.Name,
			Description: fmt.Sprintf("Artist: %s | Album: %s", strings.Join(artists, ", "), t.Album.Name),
			Category:    "Spotify Music",
			URL:         "https://open.spotify.com/embed/track/" + t.ID,
			Thumbnail:   thumb,
		})
	}
	return items, nil
}
