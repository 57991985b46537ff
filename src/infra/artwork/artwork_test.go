package artwork

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/contre95/listenlog/src/features/config"
	"github.com/contre95/listenlog/src/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestService(t *testing.T, maxSize int) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	return NewService(config.NewManager(&config.Config{DataPath: dir, Images: config.Images{MaxSize: maxSize}})), dir
}

func TestSniff(t *testing.T) {
	ext, err := Sniff([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, ".jpg", ext)

	ext, err = Sniff(pngBytes(t, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, ".png", ext)

	_, err = Sniff([]byte{0xFF, 0xD8, 0xFF})
	assert.ErrorIs(t, err, music.ErrUnsupportedImage)
	_, err = Sniff([]byte("GIF89a\x00\x00"))
	assert.ErrorIs(t, err, music.ErrUnsupportedImage)
}

func TestExtFromURL(t *testing.T) {
	for in, want := range map[string]string{
		"https://img.example/cover.JPG":           ".jpg",
		"https://img.example/a/b.jpeg?size=large": ".jpeg",
		"https://img.example/x.png":               ".png",
		"https://img.example/x.webp":              ".webp",
	} {
		got, err := ExtFromURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ExtFromURL("https://img.example/x.gif")
	assert.ErrorIs(t, err, music.ErrUnsupportedImage)
	_, err = ExtFromURL("https://img.example/noext")
	assert.ErrorIs(t, err, music.ErrUnsupportedImage)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(pngBytes(t, 2, 2)))
	assert.ErrorIs(t, Validate([]byte("<html>not an image</html>")), music.ErrUnsupportedImage)
}

func TestSaveAndFind(t *testing.T) {
	s, dir := newTestService(t, 0)

	_, found, err := s.Find(music.EntityArtist, 7)
	require.NoError(t, err)
	assert.False(t, found)

	data := pngBytes(t, 3, 3)
	rel, err := s.Save(music.EntityArtist, 7, data, ".png")
	require.NoError(t, err)
	assert.Equal(t, "static/img/artist/7.png", rel)
	stored, err := os.ReadFile(filepath.Join(dir, "static", "img", "artist", "7.png"))
	require.NoError(t, err)
	assert.Equal(t, data, stored)

	got, found, err := s.Find(music.EntityArtist, 7)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, rel, got)

	// A new variant replaces the old one.
	_, err = s.Save(music.EntityArtist, 7, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, ".jpg")
	require.NoError(t, err)
	got, _, _ = s.Find(music.EntityArtist, 7)
	assert.Equal(t, "static/img/artist/7.jpg", got)
	assert.NoFileExists(t, filepath.Join(dir, "static", "img", "artist", "7.png"))

	_, _, err = s.Find("playlist", 1)
	assert.ErrorIs(t, err, music.ErrValidation)
}

func TestSave_Downscales(t *testing.T) {
	s, dir := newTestService(t, 10)
	_, err := s.Save(music.EntityRelease, 1, pngBytes(t, 40, 20), ".png")
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, "static", "img", "release", "1.png"))
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Width)
	assert.Equal(t, 5, cfg.Height)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok.png" {
			w.Write([]byte("data"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()
	s, _ := newTestService(t, 0)

	data, err := s.Download(context.Background(), srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)

	_, err = s.Download(context.Background(), srv.URL+"/missing.png")
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	s := NewService(config.NewManager(&config.Config{DataPath: t.TempDir()}))
	rel, err := s.Save(music.EntityLabel, 3, pngBytes(t, 4, 4), ".png")
	require.NoError(t, err)

	require.NoError(t, s.Remove(rel))
	_, found, err := s.Find(music.EntityLabel, 3)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, s.Remove(rel))
}
