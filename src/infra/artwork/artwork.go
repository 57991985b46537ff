package artwork

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/contre95/listenlog/src/features/config"
	"github.com/contre95/listenlog/src/infra/clientutil"
	"github.com/contre95/listenlog/src/music"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

const (
	imageDir        = "static/img"
	downloadLimit   = 20 << 20
	downloadTimeout = 60 * time.Second
)

var extensions = []string{".jpg", ".jpeg", ".png", ".webp"}

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Service downloads, validates and stores entity images under the data path.
type Service struct {
	config *config.Manager
	client *http.Client
}

// NewService creates a new artwork service
func NewService(config *config.Manager) *Service {
	return &Service{
		config: config,
		client: clientutil.Wrap(&http.Client{Timeout: downloadTimeout}, clientutil.Chain(
			clientutil.WithMetrics("artwork"),
			clientutil.WithLogging("artwork"),
		)),
	}
}

// Sniff returns the file extension for JPEG or PNG bytes.
func Sniff(data []byte) (string, error) {
	if len(data) < len(pngSignature) {
		return "", fmt.Errorf("%w: %d bytes", music.ErrUnsupportedImage, len(data))
	}
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return ".jpg", nil
	case bytes.HasPrefix(data, pngSignature):
		return ".png", nil
	}
	return "", fmt.Errorf("%w: unknown signature % x", music.ErrUnsupportedImage, data[:4])
}

// ExtFromURL returns the lowercase image extension of a URL path.
func ExtFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", music.ErrValidation, err)
	}
	ext := strings.ToLower(path.Ext(u.Path))
	for _, e := range extensions {
		if ext == e {
			return ext, nil
		}
	}
	return "", fmt.Errorf("%w: %q", music.ErrUnsupportedImage, ext)
}

// Validate checks that data decodes as a jpeg, png or webp image.
func Validate(data []byte) error {
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %v", music.ErrUnsupportedImage, err)
	}
	return nil
}

// Download fetches raw image bytes from rawURL.
func (s *Service) Download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("image download failed: %w", clientutil.StatusError(resp.StatusCode))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, downloadLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

func relPath(t music.EntityType, id uint, ext string) string {
	return path.Join(imageDir, string(t), strconv.FormatUint(uint64(id), 10)+ext)
}

func (s *Service) abs(rel string) string {
	return filepath.Join(s.config.Get().DataPath, filepath.FromSlash(rel))
}

// Save writes an image for an entity and returns its path relative to the
// data path. Other stored variants of the same entity are removed.
func (s *Service) Save(t music.EntityType, id uint, data []byte, ext string) (string, error) {
	if _, err := music.ParseEntityType(string(t)); err != nil {
		return "", err
	}
	if maxSize := s.config.Get().Images.MaxSize; maxSize > 0 && (ext == ".jpg" || ext == ".jpeg" || ext == ".png") {
		resized, err := downscale(data, ext, maxSize)
		if err != nil {
			slog.Warn("Failed to resize image, storing original", "type", t, "id", id, "error", err)
		} else {
			data = resized
		}
	}

	rel := relPath(t, id, ext)
	dst := s.abs(rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}
	for _, e := range extensions {
		if e != ext {
			os.Remove(s.abs(relPath(t, id, e)))
		}
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	slog.Debug("Stored image", "type", t, "id", id, "path", rel)
	return rel, nil
}

// Remove deletes the image stored at rel, a path returned by Save.
func (s *Service) Remove(rel string) error {
	if err := os.Remove(s.abs(rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove image: %w", err)
	}
	return nil
}

// Find returns the stored image path of an entity, if any.
func (s *Service) Find(t music.EntityType, id uint) (string, bool, error) {
	if _, err := music.ParseEntityType(string(t)); err != nil {
		return "", false, err
	}
	for _, ext := range extensions {
		rel := relPath(t, id, ext)
		_, err := os.Stat(s.abs(rel))
		if err == nil {
			return rel, true, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", false, fmt.Errorf("stat image: %w", err)
		}
	}
	return "", false, nil
}

// downscale shrinks images whose longest side exceeds maxSize, keeping the
// aspect ratio and the original encoding.
func downscale(data []byte, ext string, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() <= maxSize && b.Dy() <= maxSize {
		return data, nil
	}
	var w, h uint
	if b.Dx() >= b.Dy() {
		w = uint(maxSize)
	} else {
		h = uint(maxSize)
	}
	resized := resize.Resize(w, h, img, resize.Lanczos3)

	var buf bytes.Buffer
	if ext == ".png" {
		err = png.Encode(&buf, resized)
	} else {
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
