package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sync"

	"botforge/internal/model"
	"botforge/internal/notify"
	"botforge/internal/storage"

	"go.uber.org/zap"
)

const (
	BusyMediaLoad = "media.load"
	BusyMediaSave = "media.save"
)

// MediaFolder is the bucket folder backing the media library
const MediaFolder = "media"

var allowedUploadTypes = map[string]bool{
	"image/jpeg":    true,
	"image/png":     true,
	"image/webp":    true,
	"image/gif":     true,
	"image/svg+xml": true,
}

// MediaStore lists and mutates the media library. There is no media
// table; every listing is derived from the bucket and URLs are rebuilt
// on each call.
type MediaStore struct {
	mu     sync.RWMutex
	cache  []model.MediaFile
	bucket storage.Bucket
	notify *notify.Center
	busy   *BusyTracker
	log    *zap.Logger
}

func NewMediaStore(bucket storage.Bucket, center *notify.Center, busy *BusyTracker, log *zap.Logger) *MediaStore {
	return &MediaStore{
		bucket: bucket,
		notify: center,
		busy:   busy,
		log:    log,
	}
}

func (s *MediaStore) List() []model.MediaFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.MediaFile, len(s.cache))
	copy(out, s.cache)
	return out
}

// Fetch relists the media folder and rebuilds every public URL
func (s *MediaStore) Fetch(ctx context.Context) error {
	s.busy.Begin(BusyMediaLoad)
	defer s.busy.End(BusyMediaLoad)

	objects, err := s.bucket.List(ctx, MediaFolder)
	if err != nil {
		s.log.Error("Failed to list media", zap.Error(err))
		s.notify.Error("Failed to load media", err.Error())
		return err
	}

	files := make([]model.MediaFile, 0, len(objects))
	for _, obj := range objects {
		files = append(files, model.MediaFile{
			ID:        obj.Path,
			Name:      obj.Name,
			Path:      obj.Path,
			Type:      obj.ContentType,
			Size:      obj.Size,
			URL:       s.bucket.PublicURL(obj.Path),
			CreatedAt: obj.ModTime,
		})
	}

	s.mu.Lock()
	s.cache = files
	s.mu.Unlock()
	return nil
}

// Upload stores a new media object. Content types outside the image
// allowlist are rejected before touching the bucket.
func (s *MediaStore) Upload(ctx context.Context, name, contentType string, data []byte) (model.MediaFile, error) {
	s.busy.Begin(BusyMediaSave)
	defer s.busy.End(BusyMediaSave)

	if !allowedUploadTypes[contentType] {
		err := fmt.Errorf("unsupported media type: %s", contentType)
		s.notify.Error("Failed to upload file", err.Error())
		return model.MediaFile{}, err
	}

	objectPath := path.Join(MediaFolder, name)
	if err := s.bucket.Put(ctx, objectPath, bytes.NewReader(data)); err != nil {
		s.log.Error("Failed to upload media", zap.String("path", objectPath), zap.Error(err))
		s.notify.Error("Failed to upload file", err.Error())
		return model.MediaFile{}, err
	}

	file := model.MediaFile{
		ID:   objectPath,
		Name: name,
		Path: objectPath,
		Type: contentType,
		Size: int64(len(data)),
		URL:  s.bucket.PublicURL(objectPath),
	}

	s.mu.Lock()
	s.cache = append([]model.MediaFile{file}, s.cache...)
	s.mu.Unlock()

	s.notify.Success("File uploaded")
	return file, nil
}

func (s *MediaStore) Delete(ctx context.Context, objectPath string) error {
	s.busy.Begin(BusyMediaSave)
	defer s.busy.End(BusyMediaSave)

	if err := s.bucket.Delete(ctx, objectPath); err != nil {
		s.log.Error("Failed to delete media", zap.String("path", objectPath), zap.Error(err))
		s.notify.Error("Failed to delete file", err.Error())
		return err
	}

	s.mu.Lock()
	kept := s.cache[:0]
	for _, f := range s.cache {
		if f.Path != objectPath {
			kept = append(kept, f)
		}
	}
	s.cache = kept
	s.mu.Unlock()

	s.notify.Success("File deleted")
	return nil
}

// Open streams a stored object, for serving /media/* directly
func (s *MediaStore) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	return s.bucket.Get(ctx, objectPath)
}
