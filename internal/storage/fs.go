package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FSStore keeps blobs on the local filesystem under a base directory.
type FSStore struct {
	base string
}

func NewFSStore(base string) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir failed: %w", err)
	}
	return &FSStore{base: base}, nil
}

func (s *FSStore) Put(key string, r io.Reader) (string, error) {
	if key == "" {
		return "", errors.New("empty storage key")
	}
	dst := filepath.Join(s.base, filepath.Clean(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create blob dir failed: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create blob failed: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write blob failed: %w", err)
	}
	return key, nil
}

func (s *FSStore) Get(key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.base, filepath.Clean(key)))
	if err != nil {
		return nil, fmt.Errorf("open blob failed: %w", err)
	}
	return f, nil
}

func (s *FSStore) Delete(key string) error {
	if err := os.Remove(filepath.Join(s.base, filepath.Clean(key))); err != nil {
		return fmt.Errorf("delete blob failed: %w", err)
	}
	return nil
}
