package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/contre95/listenlog/src/music"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TypeSqlite   = "sqlite"
	TypePostgres = "postgres"
)

// Library is a gorm implementation of the music.Library, music.GoalStore
// and music.LibraryStats interfaces.
type Library struct {
	db *gorm.DB
}

var (
	_ music.Library      = (*Library)(nil)
	_ music.GoalStore    = (*Library)(nil)
	_ music.LibraryStats = (*Library)(nil)
)

// NewLibrary opens the database and migrates the schema. For sqlite target
// is a file path, for postgres a DSN.
func NewLibrary(dbType, target string) (*Library, error) {
	var dialector gorm.Dialector
	switch dbType {
	case TypeSqlite, "":
		if dir := filepath.Dir(target); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(sqliteDSN(target))
	case TypePostgres:
		dialector = postgres.Open(target)
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}
	return NewLibraryWithDialector(dialector)
}

// NewLibraryWithDialector opens a library on an existing dialector and
// migrates the schema.
func NewLibraryWithDialector(dialector gorm.Dialector) (*Library, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	l := &Library{db: db}
	if err := l.migrate(); err != nil {
		return nil, err
	}
	return l, nil
}

// newLibraryNoMigrate wraps an open gorm handle without touching the schema.
func newLibraryNoMigrate(db *gorm.DB) *Library {
	return &Library{db: db}
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&_foreign_keys=on&_busy_timeout=5000"
	}
	return path + "?_foreign_keys=on&_busy_timeout=5000"
}

func (l *Library) migrate() error {
	err := l.db.AutoMigrate(
		&music.Artist{},
		&music.Label{},
		&music.Genre{},
		&music.Release{},
		&music.Review{},
		&music.Goal{},
		&music.LabelArtist{},
		&music.LabelGenre{},
		&music.ArtistGenre{},
		&music.ReleaseGenre{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return l.seedSentinels()
}

// seedSentinels inserts the placeholder artists and labels if missing.
func (l *Library) seedSentinels() error {
	for _, name := range []string{music.NoneName, music.VariousArtistsName} {
		a := music.Artist{Name: name}
		if err := l.db.Where(&music.Artist{Name: name}).FirstOrCreate(&a).Error; err != nil {
			return fmt.Errorf("failed to seed artist %q: %w", name, err)
		}
	}
	for _, name := range []string{music.NoneName, music.NoLabelName} {
		lbl := music.Label{Name: name}
		if err := l.db.Where(&music.Label{Name: name}).FirstOrCreate(&lbl).Error; err != nil {
			return fmt.Errorf("failed to seed label %q: %w", name, err)
		}
	}
	slog.Debug("Sentinel entities seeded")
	return nil
}

// Close closes the underlying connection pool.
func (l *Library) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
