package boleto

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Storage keeps uploaded boleto files. Names are flat: any directory part
// of a name is dropped.
type Storage interface {
	Save(name string, data []byte) (string, error)
	Get(name string) ([]byte, error)
	// Delete succeeds when the file is already gone
	Delete(name string) error
	// Path is the absolute filesystem path of name, handed to the extractor
	Path(name string) string
}

// LocalStorage is a Storage rooted at one directory
type LocalStorage struct {
	root string
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving storage directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory %s: %w", root, err)
	}
	return &LocalStorage{root: root}, nil
}

// Save refuses to overwrite an existing file so a stored boleto is never
// replaced by a later upload.
func (l *LocalStorage) Save(name string, data []byte) (string, error) {
	name = filepath.Base(name)
	f, err := os.OpenFile(l.Path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing %s: %w", name, err)
	}
	return name, nil
}

func (l *LocalStorage) Get(name string) ([]byte, error) {
	data, err := os.ReadFile(l.Path(name))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(name), err)
	}
	return data, nil
}

func (l *LocalStorage) Delete(name string) error {
	err := os.Remove(l.Path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting %s: %w", filepath.Base(name), err)
	}
	return nil
}

func (l *LocalStorage) Path(name string) string {
	return filepath.Join(l.root, filepath.Base(name))
}
