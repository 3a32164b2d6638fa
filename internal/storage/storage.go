package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Object describes one stored object in a listing. Directories are
// never reported as objects.
type Object struct {
	Name        string
	Path        string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Bucket defines the interface for the media object store
type Bucket interface {
	Put(ctx context.Context, objectPath string, reader io.Reader) error
	Get(ctx context.Context, objectPath string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectPath string) error
	List(ctx context.Context, folder string) ([]Object, error)
	// PublicURL derives the public URL for an object path. It is
	// recomputed on every call and never cached.
	PublicURL(objectPath string) string
}

// LocalBucket implements Bucket using the local filesystem
type LocalBucket struct {
	baseDir string
	baseURL string
}

// NewLocalBucket creates a local filesystem bucket rooted at baseDir
func NewLocalBucket(baseDir, baseURL string) (*LocalBucket, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalBucket{
		baseDir: baseDir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (b *LocalBucket) resolve(objectPath string) (string, error) {
	clean := path.Clean("/" + objectPath)
	if clean == "/" {
		return "", fmt.Errorf("invalid object path: %q", objectPath)
	}
	return filepath.Join(b.baseDir, filepath.FromSlash(clean)), nil
}

// Put writes an object. Overwriting an existing object is an error,
// matching the bucket's no-upsert upload contract.
func (b *LocalBucket) Put(ctx context.Context, objectPath string, reader io.Reader) error {
	fullPath, err := b.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("object already exists: %s", objectPath)
		}
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (b *LocalBucket) Get(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	fullPath, err := b.resolve(objectPath)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (b *LocalBucket) Delete(ctx context.Context, objectPath string) error {
	fullPath, err := b.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// List returns the objects directly under folder. Subdirectory markers
// are excluded from results.
func (b *LocalBucket) List(ctx context.Context, folder string) ([]Object, error) {
	dir := b.baseDir
	prefix := ""
	if folder != "" {
		resolved, err := b.resolve(folder)
		if err != nil {
			return nil, err
		}
		dir = resolved
		prefix = strings.TrimSuffix(path.Clean("/"+folder), "/")[1:] + "/"
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Object{}, nil
		}
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	objects := make([]Object, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue // removed between readdir and stat
			}
			return nil, fmt.Errorf("failed to stat object: %w", err)
		}
		objects = append(objects, Object{
			Name:        entry.Name(),
			Path:        prefix + entry.Name(),
			Size:        info.Size(),
			ContentType: detectContentType(entry.Name()),
			ModTime:     info.ModTime(),
		})
	}
	return objects, nil
}

func (b *LocalBucket) PublicURL(objectPath string) string {
	return b.baseURL + "/media/" + strings.TrimPrefix(objectPath, "/")
}

func detectContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

