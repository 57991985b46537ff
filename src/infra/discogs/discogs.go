package discogs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/contre95/listenlog/src/infra/clientutil"
	"github.com/contre95/listenlog/src/music"
	"github.com/gosimple/unidecode"
)

var ErrNoResults = errors.New("no results")

const (
	// rateLimitThreshold is the remaining request count at or below which
	// the client backs off.
	rateLimitThreshold = 1.1
	throttleDelay      = 5 * time.Second
	requestTimeout     = 60 * time.Second
	maxImageBytes      = 20 << 20
)

var disambiguation = regexp.MustCompile(`\s*\(\d+\)\s*$`)

// Client searches Discogs for artwork.
type Client struct {
	BaseURL   string
	Key       string
	Secret    string
	UserAgent string
	// Sleep is called when the rate limit is nearly exhausted.
	Sleep func(time.Duration)

	initOnce   sync.Once
	HTTPClient *http.Client

	mu        sync.Mutex
	remaining *float64
}

func (c *Client) init() {
	c.initOnce.Do(func() {
		var auth string
		if c.Key != "" || c.Secret != "" {
			auth = fmt.Sprintf("Discogs key=%s, secret=%s", c.Key, c.Secret)
		}
		if c.HTTPClient == nil {
			c.HTTPClient = &http.Client{Timeout: requestTimeout}
		}
		c.HTTPClient = clientutil.Wrap(c.HTTPClient, clientutil.Chain(
			clientutil.WithUserAgent(c.UserAgent),
			clientutil.WithHeader("Authorization", auth),
			clientutil.WithMetrics("discogs"),
			clientutil.WithLogging("discogs"),
		))
		if c.Sleep == nil {
			c.Sleep = time.Sleep
		}
	})
}

func (c *Client) do(ctx context.Context, rawURL string) (*http.Response, error) {
	c.init()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discogs request: %w", err)
	}
	c.trackRateLimit(resp)
	if resp.StatusCode/100 != 2 {
		resp.Body.Close()
		return nil, fmt.Errorf("discogs returned non 2xx: %w", clientutil.StatusError(resp.StatusCode))
	}
	return resp, nil
}

// trackRateLimit records the remaining request budget and sleeps when it
// is nearly spent.
func (c *Client) trackRateLimit(resp *http.Response) {
	v, err := strconv.ParseFloat(resp.Header.Get("x-discogs-ratelimit-remaining"), 64)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.remaining = &v
	throttled := v <= rateLimitThreshold
	c.mu.Unlock()
	if throttled {
		c.Sleep(throttleDelay)
	}
}

// Remaining returns the last reported request budget, or -1 before any response.
func (c *Client) Remaining() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining == nil {
		return -1
	}
	return *c.remaining
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, dest any) error {
	u, err := url.JoinPath(c.BaseURL, endpoint)
	if err != nil {
		return fmt.Errorf("join url: %w", err)
	}
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	resp, err := c.do(ctx, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode discogs response: %w", err)
	}
	return nil
}

type searchResult struct {
	ID     int      `json:"id"`
	Title  string   `json:"title"`
	Format []string `json:"format"`
}

// StripDisambiguation removes a trailing "(n)" marker, as in "Future (4)".
func StripDisambiguation(title string) string {
	return disambiguation.ReplaceAllString(title, "")
}

// TitlesMatch reports whether a result title names the same thing as name,
// exactly or once both are transliterated to ASCII and case folded.
func TitlesMatch(title, name string) bool {
	title = StripDisambiguation(title)
	if title == name {
		return true
	}
	return strings.EqualFold(unidecode.Unidecode(title), unidecode.Unidecode(name))
}

// SearchID returns the id of the first result matching name. Releases are
// searched by artist with name as the release title.
func (c *Client) SearchID(ctx context.Context, t music.EntityType, name, artist string) (int, error) {
	if name == "" {
		return 0, ErrNoResults
	}
	params := url.Values{}
	params.Set("type", string(t))
	if t == music.EntityRelease {
		params.Set("q", artist)
		params.Set("release_title", name)
	} else {
		params.Set("q", name)
	}
	var sr struct {
		Results []searchResult `json:"results"`
	}
	if err := c.getJSON(ctx, "database/search", params, &sr); err != nil {
		return 0, fmt.Errorf("search %s: %w", t, err)
	}
	for _, r := range sr.Results {
		if r.Title == "" || !TitlesMatch(r.Title, name) {
			continue
		}
		if slices.Contains(r.Format, "Blu-ray") {
			continue
		}
		return r.ID, nil
	}
	return 0, ErrNoResults
}

type Image struct {
	URI    string `json:"uri"`
	Height *int   `json:"height"`
	Width  *int   `json:"width"`
}

// PickImage returns the first square image, else the first image, else "".
func PickImage(images []Image) string {
	for _, img := range images {
		if img.Height != nil && img.Width != nil && *img.Height == *img.Width {
			return img.URI
		}
	}
	if len(images) > 0 {
		return images[0].URI
	}
	return ""
}

func endpointFor(t music.EntityType, id int) (string, error) {
	switch t {
	case music.EntityRelease:
		return "releases/" + strconv.Itoa(id), nil
	case music.EntityArtist:
		return "artists/" + strconv.Itoa(id), nil
	case music.EntityLabel:
		return "labels/" + strconv.Itoa(id), nil
	}
	return "", fmt.Errorf("%w: unknown entity type %q", music.ErrValidation, t)
}

// ImageURL finds the preferred image URL for a release, artist or label.
func (c *Client) ImageURL(ctx context.Context, t music.EntityType, name, artist string) (string, error) {
	id, err := c.SearchID(ctx, t, name, artist)
	if err != nil {
		return "", err
	}
	endpoint, err := endpointFor(t, id)
	if err != nil {
		return "", err
	}
	var item struct {
		Images []Image `json:"images"`
	}
	if err := c.getJSON(ctx, endpoint, nil, &item); err != nil {
		return "", fmt.Errorf("get %s %d: %w", t, id, err)
	}
	uri := PickImage(item.Images)
	if uri == "" {
		return "", ErrNoResults
	}
	return uri, nil
}

// Download fetches raw image bytes.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.do(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// Image finds and downloads the preferred image for a release, artist or label.
func (c *Client) Image(ctx context.Context, t music.EntityType, name, artist string) ([]byte, error) {
	uri, err := c.ImageURL(ctx, t, name, artist)
	if err != nil {
		return nil, err
	}
	return c.Download(ctx, uri)
}
