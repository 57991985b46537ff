package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/contre95/listenlog/src/infra/clientutil"
	"github.com/contre95/listenlog/src/music"
)

var ErrNoResults = errors.New("no results")

// requestTimeout bounds every call when no HTTPClient is supplied.
const requestTimeout = 60 * time.Second

func defaultClient(c *http.Client) *http.Client {
	if c == nil {
		return &http.Client{Timeout: requestTimeout}
	}
	return c
}

// MBClient is a MusicBrainz web service client. It implements music.MetadataProvider.
type MBClient struct {
	BaseURL   string
	RateLimit time.Duration
	UserAgent string

	initOnce   sync.Once
	HTTPClient *http.Client
}

var _ music.MetadataProvider = (*MBClient)(nil)

func (c *MBClient) Name() string { return "musicbrainz" }

func (c *MBClient) request(ctx context.Context, path string, params url.Values, dest any) error {
	c.initOnce.Do(func() {
		c.HTTPClient = clientutil.Wrap(defaultClient(c.HTTPClient), clientutil.Chain(
			clientutil.WithCache(),
			clientutil.WithUserAgent(c.UserAgent),
			clientutil.WithRateLimit(c.RateLimit),
			clientutil.WithMetrics("musicbrainz"),
			clientutil.WithLogging("musicbrainz"),
		))
	})

	if params == nil {
		params = url.Values{}
	}
	params.Set("fmt", "json")
	u, err := url.Parse(joinPath(c.BaseURL, path))
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("musicbrainz returned non 2xx: %w", clientutil.StatusError(resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func entityPath(t music.EntityType) (string, error) {
	if !t.IsParty() {
		return "", fmt.Errorf("%w: musicbrainz lookups support artist and label, got %q", music.ErrValidation, t)
	}
	return string(t), nil
}

// SearchEntity returns the mbid of the first artist or label matching name.
func (c *MBClient) SearchEntity(ctx context.Context, t music.EntityType, name string) (string, error) {
	path, err := entityPath(t)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		return "", ErrNoResults
	}
	params := url.Values{}
	params.Set("query", name)
	params.Set("limit", "5")

	var sr struct {
		Artists []struct {
			ID string `json:"id"`
		} `json:"artists"`
		Labels []struct {
			ID string `json:"id"`
		} `json:"labels"`
	}
	if err := c.request(ctx, path, params, &sr); err != nil {
		return "", fmt.Errorf("search %s: %w", t, err)
	}
	var id string
	switch {
	case t == music.EntityArtist && len(sr.Artists) > 0:
		id = sr.Artists[0].ID
	case t == music.EntityLabel && len(sr.Labels) > 0:
		id = sr.Labels[0].ID
	}
	if id == "" {
		return "", ErrNoResults
	}
	return id, nil
}

type lifeSpan struct {
	Begin *string `json:"begin"`
	End   *string `json:"end"`
}

type entity struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Country  string   `json:"country"`
	Type     string   `json:"type"`
	LifeSpan lifeSpan `json:"life-span"`
}

// LookupEntity fetches an artist or label by mbid. Missing life-span dates
// resolve to the open-ended placeholders.
func (c *MBClient) LookupEntity(ctx context.Context, t music.EntityType, mbid string) (*music.EntityInfo, error) {
	path, err := entityPath(t)
	if err != nil {
		return nil, err
	}
	var e entity
	if err := c.request(ctx, joinPath(path, mbid), nil, &e); err != nil {
		return nil, fmt.Errorf("lookup %s %s: %w", t, mbid, err)
	}
	if e.ID == "" {
		return nil, ErrNoResults
	}
	begin, err := music.ToDate(music.BoundBegin, e.LifeSpan.Begin)
	if err != nil {
		return nil, fmt.Errorf("parse %s begin date: %w", t, err)
	}
	end, err := music.ToDate(music.BoundEnd, e.LifeSpan.End)
	if err != nil {
		return nil, fmt.Errorf("parse %s end date: %w", t, err)
	}
	return &music.EntityInfo{
		MBID:    e.ID,
		Name:    e.Name,
		Country: e.Country,
		Type:    e.Type,
		Begin:   begin,
		End:     end,
	}, nil
}

type Media struct {
	Format     string `json:"format"`
	TrackCount int    `json:"track-count"`
	Tracks     []struct {
		Length *int `json:"length"`
	} `json:"tracks"`
}

type Release struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Date         string `json:"date"`
	Country      string `json:"country"`
	ArtistCredit []struct {
		Name   string `json:"name"`
		Artist struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"artist"`
	} `json:"artist-credit"`
	LabelInfo []struct {
		Label *struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"label"`
	} `json:"label-info"`
	Media        []Media `json:"media"`
	ReleaseGroup struct {
		ID string `json:"id"`
	} `json:"release-group"`
}

// ReleaseInfo flattens a search hit. Missing credits leave the fields empty.
func (r Release) ReleaseInfo() music.ReleaseInfo {
	info := music.ReleaseInfo{
		MBID:             r.ID,
		Name:             r.Title,
		Country:          r.Country,
		ReleaseGroupMBID: r.ReleaseGroup.ID,
	}
	if len(r.ArtistCredit) > 0 {
		info.ArtistName = r.ArtistCredit[0].Name
		info.ArtistMBID = r.ArtistCredit[0].Artist.ID
	}
	if len(r.LabelInfo) > 0 && r.LabelInfo[0].Label != nil {
		info.LabelName = r.LabelInfo[0].Label.Name
		info.LabelMBID = r.LabelInfo[0].Label.ID
	}
	if r.Date != "" {
		if t, err := dateparse.ParseAny(r.Date); err == nil {
			info.Year = t.Year()
		}
	}
	if len(r.Media) > 0 {
		info.Format = r.Media[0].Format
	}
	for _, m := range r.Media {
		info.TrackCount += m.TrackCount
	}
	return info
}

// SearchReleases runs a release search. At least one term is required.
func (c *MBClient) SearchReleases(ctx context.Context, release, artist, label string) ([]music.ReleaseInfo, error) {
	var terms []string
	if release != "" {
		terms = append(terms, field("release", release))
	}
	if artist != "" {
		terms = append(terms, field("artist", artist))
	}
	if label != "" {
		terms = append(terms, field("label", label))
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: at least one query term is required", music.ErrValidation)
	}
	params := url.Values{}
	params.Set("query", strings.Join(terms, " AND "))
	params.Set("limit", "25")

	var sr struct {
		Releases []Release `json:"releases"`
	}
	if err := c.request(ctx, "release", params, &sr); err != nil {
		return nil, fmt.Errorf("search releases: %w", err)
	}
	out := make([]music.ReleaseInfo, 0, len(sr.Releases))
	for _, r := range sr.Releases {
		out = append(out, r.ReleaseInfo())
	}
	return out, nil
}

// ReleaseLength sums the track lengths of a release in milliseconds.
// Tracks without a length are skipped.
func (c *MBClient) ReleaseLength(ctx context.Context, mbid string) (int, error) {
	if mbid == "" {
		return 0, nil
	}
	params := url.Values{}
	params.Set("inc", "recordings+media")
	var r Release
	if err := c.request(ctx, joinPath("release", mbid), params, &r); err != nil {
		return 0, fmt.Errorf("lookup release %s: %w", mbid, err)
	}
	length := 0
	for _, m := range r.Media {
		for _, t := range m.Tracks {
			if t.Length != nil {
				length += *t.Length
			}
		}
	}
	return length, nil
}

var escapeLucene *strings.Replacer

func init() {
	var pairs []string
	for _, c := range []string{`&&`, `||`, `+`, `-`, `!`, `(`, `)`, `{`, `}`, `[`, `]`, `^`, `"`, `~`, `*`, `?`, `:`, `\`, `/`} {
		pairs = append(pairs, c, `\`+c)
	}
	escapeLucene = strings.NewReplacer(pairs...)
}

func field(k, v string) string {
	return fmt.Sprintf("%s:(%s)", k, escapeLucene.Replace(strings.ToLower(v)))
}

func joinPath(base string, p ...string) string {
	r, _ := url.JoinPath(base, p...)
	return r
}
