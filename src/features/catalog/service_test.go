package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/contre95/listenlog/src/features/imaging"
	"github.com/contre95/listenlog/src/features/jobs"
	"github.com/contre95/listenlog/src/infra/database"
	"github.com/contre95/listenlog/src/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockLibrary keeps entities and releases in memory
type MockLibrary struct {
	music.Library // Embed interface, unused methods panic
	mu            sync.Mutex
	entities      []music.EntityRef
	mbids         map[string]uint
	added         []music.EntityInfo
	releases      []*music.Release
	releaseGenres map[uint][]uint
	genres        map[string]uint
	addErr        error
}

func newMockLibrary() *MockLibrary {
	return &MockLibrary{mbids: map[string]uint{}, releaseGenres: map[uint][]uint{}, genres: map[string]uint{}}
}

func (m *MockLibrary) FindEntityByMBID(_ context.Context, t music.EntityType, mbid string) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.mbids[string(t)+mbid]; ok {
		return id, nil
	}
	return 0, music.ErrNotFound
}

func (m *MockLibrary) FindEntitiesByName(_ context.Context, t music.EntityType, name string) ([]music.EntityRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []music.EntityRef
	for _, e := range m.entities {
		if strings.Contains(strings.ToLower(e.Name), strings.ToLower(name)) || strings.Contains(strings.ToLower(name), strings.ToLower(e.Name)) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockLibrary) AddEntity(ctx context.Context, t music.EntityType, info music.EntityInfo) (uint, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return 0, m.addErr
	}
	id := uint(len(m.entities) + 1)
	m.entities = append(m.entities, music.EntityRef{ID: id, Name: info.Name})
	m.added = append(m.added, info)
	if info.MBID != "" {
		m.mbids[string(t)+info.MBID] = id
	}
	return id, nil
}

func (m *MockLibrary) addedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.added)
}

func (m *MockLibrary) FindOrCreateGenre(_ context.Context, name string) (*music.Genre, error) {
	if id, ok := m.genres[name]; ok {
		return &music.Genre{ID: id, Name: name}, nil
	}
	id := uint(len(m.genres) + 1)
	m.genres[name] = id
	return &music.Genre{ID: id, Name: name}, nil
}

func (m *MockLibrary) AddRelease(_ context.Context, r *music.Release, genreIDs []uint) error {
	r.ID = uint(len(m.releases) + 1)
	m.releases = append(m.releases, r)
	m.releaseGenres[r.ID] = genreIDs
	return nil
}

func (m *MockLibrary) AddReview(_ context.Context, r *music.Review) error {
	r.ID = 1
	return nil
}

// MockProvider serves canned MusicBrainz answers
type MockProvider struct {
	music.MetadataProvider // Embed interface, unused methods panic
	searchID               string
	searchErr              error
	info                   *music.EntityInfo
	lookupErr              error
	release                chan struct{}
	lookups                atomic.Int32
	length                 int
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) SearchEntity(_ context.Context, _ music.EntityType, _ string) (string, error) {
	return m.searchID, m.searchErr
}

func (m *MockProvider) LookupEntity(_ context.Context, _ music.EntityType, mbid string) (*music.EntityInfo, error) {
	m.lookups.Add(1)
	if m.release != nil {
		<-m.release
	}
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	info := *m.info
	return &info, nil
}

func (m *MockProvider) ReleaseLength(_ context.Context, _ string) (int, error) {
	return m.length, nil
}

func (m *MockProvider) SearchReleases(_ context.Context, release, artist, label string) ([]music.ReleaseInfo, error) {
	return []music.ReleaseInfo{{Name: release, ArtistName: artist}}, nil
}

type fakeImages struct {
	mu        sync.Mutex
	scheduled []imaging.Request
	resolved  []imaging.Request
	err       error
}

func (f *fakeImages) Resolve(_ context.Context, req imaging.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, req)
	return "static/img/x.jpg", nil
}

func (f *fakeImages) Schedule(req imaging.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, req)
	return "job", f.err
}

type fakeJobs struct {
	jobs.JobService // Embed interface, unused methods panic
	started         []string
}

func (f *fakeJobs) StartJob(jobType string, name string, metadata map[string]any) (string, error) {
	f.started = append(f.started, jobType)
	return "job", nil
}

func TestCreateIfNotExist_ExistingMBIDSkipsNetwork(t *testing.T) {
	lib := newMockLibrary()
	lib.mbids["artist"+"mb-1"] = 7
	provider := &MockProvider{}
	s := NewService(lib, provider, nil, nil)

	id, err := s.CreateIfNotExist(context.Background(), music.EntityArtist, "Autechre", "mb-1")
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)
	assert.Zero(t, provider.lookups.Load())
}

func TestCreateIfNotExist_FuzzyMatchPicksClosest(t *testing.T) {
	lib := newMockLibrary()
	lib.entities = []music.EntityRef{{ID: 1, Name: "Boards of Canada Tribute"}, {ID: 2, Name: "boards of canada"}}
	s := NewService(lib, &MockProvider{}, nil, nil)

	id, err := s.CreateIfNotExist(context.Background(), music.EntityArtist, "Boards of Canada", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), id)
	assert.Zero(t, lib.addedCount())
}

func TestBestMatch_TiesKeepLowestID(t *testing.T) {
	best, ok := bestMatch([]music.EntityRef{{ID: 3, Name: "Warp"}, {ID: 5, Name: "warp"}}, "WARP")
	require.True(t, ok)
	assert.Equal(t, uint(3), best.ID)

	_, ok = bestMatch(nil, "Warp")
	assert.False(t, ok)
}

func TestCreateIfNotExist_LookupFillsInfoAndSchedulesImage(t *testing.T) {
	lib := newMockLibrary()
	begin := time.Date(1987, 1, 1, 0, 0, 0, 0, time.UTC)
	provider := &MockProvider{searchID: "mb-2", info: &music.EntityInfo{MBID: "mb-2", Name: "Autechre", Country: "GB", Begin: begin}}
	images := &fakeImages{}
	s := NewService(lib, provider, images, nil)

	id, err := s.CreateIfNotExist(context.Background(), music.EntityArtist, "autechre", "")
	require.NoError(t, err)
	require.Len(t, lib.added, 1)
	assert.Equal(t, "Autechre", lib.added[0].Name)
	assert.Equal(t, "GB", lib.added[0].Country)
	assert.Equal(t, begin, lib.added[0].Begin)
	require.Len(t, images.scheduled, 1)
	assert.Equal(t, imaging.Request{Type: music.EntityArtist, ID: id, Name: "Autechre"}, images.scheduled[0])
}

func TestCreateIfNotExist_LookupResolvesToKnownMBID(t *testing.T) {
	lib := newMockLibrary()
	lib.mbids["label"+"mb-warp"] = 4
	provider := &MockProvider{searchID: "mb-warp", info: &music.EntityInfo{MBID: "mb-warp", Name: "Warp"}}
	s := NewService(lib, provider, nil, nil)

	id, err := s.CreateIfNotExist(context.Background(), music.EntityLabel, "Warp Records", "")
	require.NoError(t, err)
	assert.Equal(t, uint(4), id)
	assert.Zero(t, lib.addedCount())
}

func TestCreateIfNotExist_ProviderFailureFallsBack(t *testing.T) {
	lib := newMockLibrary()
	provider := &MockProvider{searchErr: errors.New("timeout")}
	images := &fakeImages{err: errors.New("queue full")}
	s := NewService(lib, provider, images, nil)

	_, err := s.CreateIfNotExist(context.Background(), music.EntityLabel, "Tiny Label", "")
	require.NoError(t, err)
	assert.Equal(t, []music.EntityInfo{{Name: "Tiny Label"}}, lib.added)

	provider = &MockProvider{lookupErr: errors.New("503")}
	s = NewService(lib, provider, nil, nil)
	_, err = s.CreateIfNotExist(context.Background(), music.EntityLabel, "Other", "mb-x")
	require.NoError(t, err)
	assert.Equal(t, music.EntityInfo{Name: "Other", MBID: "mb-x"}, lib.added[1])
}

func TestCreateIfNotExist_Validation(t *testing.T) {
	s := NewService(newMockLibrary(), nil, nil, nil)
	_, err := s.CreateIfNotExist(context.Background(), music.EntityRelease, "x", "")
	assert.ErrorIs(t, err, music.ErrValidation)
	_, err = s.CreateIfNotExist(context.Background(), music.EntityArtist, "  ", "")
	assert.ErrorIs(t, err, music.ErrValidation)
}

func TestCreateIfNotExist_ConcurrentCallsCollapse(t *testing.T) {
	lib := newMockLibrary()
	provider := &MockProvider{
		searchID: "mb-3",
		info:     &music.EntityInfo{MBID: "mb-3", Name: "Plaid"},
		release:  make(chan struct{}),
	}
	s := NewService(lib, provider, nil, nil)

	const callers = 8
	ids := make([]uint, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.CreateIfNotExist(context.Background(), music.EntityArtist, "Plaid", "")
			assert.NoError(t, err)
			ids[i] = id
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(provider.release)
	wg.Wait()

	assert.Equal(t, 1, lib.addedCount())
	assert.EqualValues(t, 1, provider.lookups.Load())
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestCreateIfNotExist_SameMBIDTwiceInsertsOnce(t *testing.T) {
	lib, err := database.NewLibrary(database.TypeSqlite, filepath.Join(t.TempDir(), "listenlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })
	provider := &MockProvider{info: &music.EntityInfo{MBID: "X1", Name: "Artist A"}}
	s := NewService(lib, provider, nil, nil)
	ctx := context.Background()

	first, err := s.CreateIfNotExist(ctx, music.EntityArtist, "Artist A", "X1")
	require.NoError(t, err)
	second, err := s.CreateIfNotExist(ctx, music.EntityArtist, "Artist A", "X1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, provider.lookups.Load())
	refs, err := lib.FindEntitiesByName(ctx, music.EntityArtist, "Artist A")
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}

func TestCreateIfNotExist_JoinedCallerSurvivesCancellation(t *testing.T) {
	lib := newMockLibrary()
	provider := &MockProvider{
		info:    &music.EntityInfo{MBID: "mb-5", Name: "Mouse on Mars"},
		release: make(chan struct{}),
	}
	s := NewService(lib, provider, nil, nil)

	cancelled, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.CreateIfNotExist(cancelled, music.EntityArtist, "Mouse on Mars", "mb-5")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return provider.lookups.Load() == 1 }, time.Second, time.Millisecond)

	secondID := make(chan uint, 1)
	go func() {
		id, err := s.CreateIfNotExist(context.Background(), music.EntityArtist, "Mouse on Mars", "mb-5")
		assert.NoError(t, err)
		secondID <- id
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	close(provider.release)

	assert.NoError(t, <-firstErr)
	assert.NotZero(t, <-secondID)
	assert.Equal(t, 1, lib.addedCount())
}

func TestCreateIfNotExist_ConflictSurfaces(t *testing.T) {
	lib := newMockLibrary()
	lib.addErr = fmt.Errorf("add artist: %w", music.ErrConflict)
	s := NewService(lib, nil, nil, nil)

	_, err := s.CreateIfNotExist(context.Background(), music.EntityArtist, "Seefeel", "mb-4")
	assert.ErrorIs(t, err, music.ErrConflict)
}

func TestCreateGenres(t *testing.T) {
	lib := newMockLibrary()
	s := NewService(lib, nil, nil, nil)

	ids, err := s.CreateGenres(context.Background(), " idm, ambient ,,idm, ")
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, ids)

	_, err = s.CreateGenre(context.Background(), " ")
	assert.ErrorIs(t, err, music.ErrValidation)
}

func TestSubmitRelease_Manual(t *testing.T) {
	lib := newMockLibrary()
	images := &fakeImages{}
	jobService := &fakeJobs{}
	s := NewService(lib, nil, images, jobService)

	r, err := s.SubmitRelease(context.Background(), Submission{
		Manual:     true,
		Name:       "Untrue",
		ArtistName: "Burial",
		Runtime:    51,
		Country:    "Iceland",
		Rating:     95,
		MainGenre:  "dubstep",
		Genres:     "garage, dubstep",
		ListenDate: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 51*60000, r.Runtime)
	assert.Equal(t, "IS", r.Country)
	require.NotNil(t, r.MainGenreID)
	assert.Equal(t, []uint{*r.MainGenreID, 2}, lib.releaseGenres[r.ID])
	assert.Nil(t, r.MBID)

	require.Len(t, lib.added, 2)
	assert.Equal(t, "Burial", lib.added[0].Name)
	assert.Equal(t, music.NoLabelName, lib.added[1].Name)
	assert.Equal(t, []string{"goal_check"}, jobService.started)
	assert.Contains(t, images.scheduled, imaging.Request{Type: music.EntityRelease, ID: r.ID, Name: "Untrue", ArtistName: "Burial"})
}

func TestSubmitRelease_CatalogFetchesLength(t *testing.T) {
	lib := newMockLibrary()
	provider := &MockProvider{searchErr: errors.New("offline"), length: 3600000}
	s := NewService(lib, provider, nil, nil)

	r, err := s.SubmitRelease(context.Background(), Submission{
		MBID:    "rel-1",
		Name:    "Music Has the Right to Children",
		Country: "GB",
	})
	require.NoError(t, err)
	assert.Equal(t, 3600000, r.Runtime)
	assert.Equal(t, "GB", r.Country)
	assert.Equal(t, "rel-1", music.StringValue(r.MBID))
	assert.Equal(t, music.NoneName, lib.added[0].Name)
	assert.False(t, r.ListenDate.IsZero())
}

func TestSubmitRelease_RejectsBadInput(t *testing.T) {
	s := NewService(newMockLibrary(), nil, nil, nil)
	_, err := s.SubmitRelease(context.Background(), Submission{Name: " "})
	assert.ErrorIs(t, err, music.ErrValidation)
	_, err = s.SubmitRelease(context.Background(), Submission{Name: "x", Rating: 120})
	assert.ErrorIs(t, err, music.ErrValidation)
}

func TestSearchCatalog_RequiresTerm(t *testing.T) {
	s := NewService(newMockLibrary(), &MockProvider{}, nil, nil)
	_, err := s.SearchCatalog(context.Background(), " ", "", "")
	assert.ErrorIs(t, err, music.ErrValidation)

	res, err := s.SearchCatalog(context.Background(), "Tri Repetae", "Autechre", "")
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestAddReview(t *testing.T) {
	s := NewService(newMockLibrary(), nil, nil, nil)
	_, err := s.AddReview(context.Background(), 1, "  ", time.Time{})
	assert.ErrorIs(t, err, music.ErrValidation)

	r, err := s.AddReview(context.Background(), 1, "grower", time.Time{})
	require.NoError(t, err)
	assert.False(t, r.Timestamp.IsZero())
	assert.Equal(t, "grower", r.Text)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	got, p := Paginate(items, 2, 5)
	assert.Equal(t, []int{6, 7, 8, 9, 10}, got)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	got, p = Paginate(items, 3, 5)
	assert.Equal(t, []int{11, 12}, got)
	assert.False(t, p.HasNext)

	got, _ = Paginate(items, 9, 5)
	assert.Empty(t, got)

	got, p = Paginate(items, 0, 0)
	assert.Equal(t, []int{1}, got)
	assert.Equal(t, 1, p.Page)
}
