package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/contre95/listenlog/src/infra/clientutil"
)

// maxImageBytes caps downloaded covers.
const maxImageBytes = 20 << 20

type CAAClient struct {
	BaseURL   string
	RateLimit time.Duration
	UserAgent string

	initOnce   sync.Once
	HTTPClient *http.Client
}

func (c *CAAClient) init() {
	c.initOnce.Do(func() {
		c.HTTPClient = clientutil.Wrap(defaultClient(c.HTTPClient), clientutil.Chain(
			clientutil.WithUserAgent(c.UserAgent),
			clientutil.WithRateLimit(c.RateLimit),
			clientutil.WithMetrics("coverartarchive"),
			clientutil.WithLogging("coverartarchive"),
		))
	})
}

func (c *CAAClient) get(ctx context.Context, url string) (*http.Response, error) {
	c.init()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("make caa request: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		resp.Body.Close()
		return nil, fmt.Errorf("caa returned non 2xx: %w", clientutil.StatusError(resp.StatusCode))
	}
	return resp, nil
}

func (c *CAAClient) download(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read cover: %w", err)
	}
	return data, nil
}

// FrontCover returns the 250px front cover of a release group. When there
// is no designated front image the first image of the group is used.
func (c *CAAClient) FrontCover(ctx context.Context, releaseGroupMBID string) ([]byte, error) {
	if releaseGroupMBID == "" {
		return nil, ErrNoResults
	}
	cover, err := c.download(ctx, joinPath(c.BaseURL, "release-group", releaseGroupMBID, "front-250"))
	if err == nil {
		return cover, nil
	}
	if se := clientutil.StatusError(0); !errors.As(err, &se) {
		return nil, err
	}

	imageURL, err := c.firstImageURL(ctx, releaseGroupMBID)
	if err != nil {
		return nil, err
	}
	return c.download(ctx, imageURL)
}

func (c *CAAClient) firstImageURL(ctx context.Context, releaseGroupMBID string) (string, error) {
	resp, err := c.get(ctx, joinPath(c.BaseURL, "release-group", releaseGroupMBID))
	if err != nil {
		return "", fmt.Errorf("list images: %w", err)
	}
	defer resp.Body.Close()

	var caa caaResponse
	if err := json.NewDecoder(resp.Body).Decode(&caa); err != nil {
		return "", fmt.Errorf("decode caa response: %w", err)
	}
	if len(caa.Images) == 0 {
		return "", ErrNoResults
	}
	img := caa.Images[0]
	if img.Thumbnails.Num250 != "" {
		return img.Thumbnails.Num250, nil
	}
	if img.Image != "" {
		return img.Image, nil
	}
	return "", ErrNoResults
}

type caaResponse struct {
	Release string `json:"release"`
	Images  []struct {
		Front      bool   `json:"front"`
		ID         any    `json:"id"`
		Image      string `json:"image"`
		Thumbnails struct {
			Num250 string `json:"250"`
			Num500 string `json:"500"`
			Small  string `json:"small"`
		} `json:"thumbnails"`
	} `json:"images"`
}
