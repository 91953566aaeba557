package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const pageFile = "index.html"

// FSPageStore writes pages to <dir>/<slug>/index.html.
type FSPageStore struct { // implements PageStore
	dir string
}

func NewFSPageStore(dir string) *FSPageStore {
	return &FSPageStore{dir: dir}
}

func (s *FSPageStore) pageDir(slug string) (string, error) {
	if slug == "" || strings.ContainsAny(slug, `/\`) || slug == "." || slug == ".." {
		return "", fmt.Errorf("invalid page slug %q", slug)
	}
	return filepath.Join(s.dir, slug), nil
}

func (s *FSPageStore) Put(_ context.Context, slug string, page []byte) error {
	dir, err := s.pageDir(slug)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating page directory: %w", err)
	}

	// Readers never see a partially written page.
	tmp, err := os.CreateTemp(dir, pageFile+".*")
	if err != nil {
		return fmt.Errorf("error creating page file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(page); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing page: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error writing page: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("error writing page: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, pageFile)); err != nil {
		return fmt.Errorf("error writing page: %w", err)
	}

	repoLogger.Debug().Str("slug", slug).Str("dir", dir).Msg("Page written")
	return nil
}

func (s *FSPageStore) Delete(_ context.Context, slug string) error {
	dir, err := s.pageDir(slug)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error deleting page: %w", err)
	}
	repoLogger.Debug().Str("slug", slug).Msg("Page deleted")
	return nil
}

var _ PageStore = (*FSPageStore)(nil)
