package musicbrainz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/contre95/listenlog/src/infra/clientutil"
	"github.com/contre95/listenlog/src/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *MBClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &MBClient{BaseURL: srv.URL, UserAgent: "listenlog-test/0.0"}
}

func TestSearchEntityAndLookup(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("fmt"))
		assert.Equal(t, "listenlog-test/0.0", r.UserAgent())
		switch r.URL.Path {
		case "/label":
			assert.Equal(t, "Warp", r.URL.Query().Get("query"))
			w.Write([]byte(`{"labels":[{"id":"46f0f4cd-8aab-4b33-b698-f459faf64190"},{"id":"other"}]}`))
		case "/label/46f0f4cd-8aab-4b33-b698-f459faf64190":
			w.Write([]byte(`{"id":"46f0f4cd-8aab-4b33-b698-f459faf64190","name":"Warp","country":"GB","type":"Original Production","life-span":{"begin":"1989-11","end":null}}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	mbid, err := c.SearchEntity(ctx, music.EntityLabel, "Warp")
	require.NoError(t, err)
	assert.Equal(t, "46f0f4cd-8aab-4b33-b698-f459faf64190", mbid)

	info, err := c.LookupEntity(ctx, music.EntityLabel, mbid)
	require.NoError(t, err)
	assert.Equal(t, "Warp", info.Name)
	assert.Equal(t, "GB", info.Country)
	assert.Equal(t, time.Date(1989, 11, 1, 0, 0, 0, 0, time.UTC), info.Begin)
	assert.Equal(t, time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC), info.End)
}

func TestSearchEntity_NoResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"artists":[]}`))
	})
	_, err := c.SearchEntity(context.Background(), music.EntityArtist, "zzzz")
	assert.ErrorIs(t, err, ErrNoResults)

	_, err = c.SearchEntity(context.Background(), music.EntityRelease, "x")
	assert.ErrorIs(t, err, music.ErrValidation)
}

func TestLookupEntity_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := c.LookupEntity(context.Background(), music.EntityArtist, "abc")
	var se clientutil.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, int(se))
}

func TestSearchReleases_ParsesHits(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/release", r.URL.Path)
		assert.Equal(t, `release:(drukqs) AND artist:(aphex twin)`, r.URL.Query().Get("query"))
		w.Write([]byte(`{"releases":[
			{"id":"r1","title":"Drukqs","date":"2001-10-22","country":"GB",
			 "artist-credit":[{"name":"Aphex Twin","artist":{"id":"a1","name":"Aphex Twin"}}],
			 "label-info":[{"label":{"id":"l1","name":"Warp"}}],
			 "media":[{"format":"CD","track-count":15},{"format":"CD","track-count":15}],
			 "release-group":{"id":"rg1"}},
			{"id":"r2","title":"Drukqs","date":"","media":[],"release-group":{"id":"rg1"}}
		]}`))
	})

	got, err := c.SearchReleases(context.Background(), "Drukqs", "Aphex Twin", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, music.ReleaseInfo{
		MBID: "r1", Name: "Drukqs", ArtistMBID: "a1", ArtistName: "Aphex Twin",
		LabelMBID: "l1", LabelName: "Warp", Year: 2001, Format: "CD", TrackCount: 30,
		Country: "GB", ReleaseGroupMBID: "rg1",
	}, got[0])
	assert.Zero(t, got[1].Year)
	assert.Empty(t, got[1].ArtistName)
	assert.Empty(t, got[1].LabelName)

	_, err = c.SearchReleases(context.Background(), "", "", "")
	assert.ErrorIs(t, err, music.ErrValidation)
}

func TestReleaseLength(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/release/r1", r.URL.Path)
		w.Write([]byte(`{"id":"r1","media":[{"tracks":[{"length":1000},{"length":null},{"length":2500}]},{"tracks":[{"length":500}]}]}`))
	})
	n, err := c.ReleaseLength(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, 4000, n)
}

func TestFrontCover_FallsBackToImageList(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/release-group/rg1/front-250":
			http.NotFound(w, r)
		case "/release-group/rg1":
			w.Write([]byte(`{"images":[{"id":1,"image":"` + srvURL + `/full.jpg","thumbnails":{"250":"` + srvURL + `/thumb.jpg"}}]}`))
		case "/thumb.jpg":
			w.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	c := &CAAClient{BaseURL: srv.URL}
	data, err := c.FrontCover(context.Background(), "rg1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, data)

	_, err = c.FrontCover(context.Background(), "missing")
	assert.Error(t, err)
}

func TestClients_DefaultTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"r1","media":[]}`))
	}))
	defer srv.Close()

	mb := &MBClient{BaseURL: srv.URL}
	_, err := mb.ReleaseLength(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, mb.HTTPClient.Timeout)

	caa := &CAAClient{BaseURL: srv.URL}
	_, _ = caa.FrontCover(context.Background(), "rg1")
	assert.Equal(t, 60*time.Second, caa.HTTPClient.Timeout)

	custom := &MBClient{BaseURL: srv.URL, HTTPClient: &http.Client{Timeout: time.Second}}
	_, err = custom.ReleaseLength(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, time.Second, custom.HTTPClient.Timeout)
}
