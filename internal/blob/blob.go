// Package blob is the key-value persistence the event store writes through.
// Every value is read and written whole; backends never see partial updates.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
)

var (
	ErrInvalidKey = errors.New("blob: invalid key")
	ErrClosed     = errors.New("blob: store closed")
)

var keyRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Store is a medium-agnostic key-value blob store.
type Store interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Put replaces the value for key. It returns only once the value is durable.
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

func validateKey(key string) error {
	if !keyRe.MatchString(key) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Config selects and configures a backend.
type Config struct {
	// Type is one of "memory", "file" or "sqlite".
	Type string
	// Path is a directory for "file" and the database file's directory for "sqlite".
	Path string
}

// SQLiteFileName is the database file created under Config.Path.
const SQLiteFileName = "medula.db"

// New builds the backend described by cfg.
func New(cfg Config) (Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemory(), nil
	case "file", "":
		return NewFile(cfg.Path)
	case "sqlite":
		s, err := NewSQLite(filepath.Join(cfg.Path, SQLiteFileName))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite blob store under %s: %w", cfg.Path, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type %s", cfg.Type)
	}
}
