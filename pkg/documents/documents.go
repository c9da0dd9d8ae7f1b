// Package documents stores files attached to blood requests, in S3 when a
// bucket is configured and in process memory otherwise.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bloodbank/pkg/config"
)

const (
	DriverMemory = "memory"
	DriverS3     = "s3"
)

var (
	ErrUnsupportedType = errors.New("file type not allowed")
	ErrEmptyFile       = errors.New("file is empty")
)

var allowedExtensions = map[string]struct{}{
	".txt": {}, ".pdf": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".doc": {}, ".docx": {},
}

// Document describes one stored object.
type Document struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	URL         string    `json:"url,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Store is the object storage the documents service writes to.
type Store interface {
	Driver() string
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	List(ctx context.Context, prefix string) ([]Document, error)
	URL(ctx context.Context, key string) (string, error)
}

// Open returns an S3 store when cfg carries a bucket and credentials, otherwise a memory store.
func Open(ctx context.Context, cfg config.S3, log *zap.Logger) (Store, error) {
	if !cfg.Configured() {
		log.Info("no document bucket configured, keeping uploads in memory")
		return NewMemory(), nil
	}
	s, err := NewS3(ctx, S3Config{
		Bucket:          cfg.Bucket,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		PathStyle:       cfg.PathStyle,
		PresignTTL:      cfg.PresignTTL,
	})
	if err != nil {
		return nil, err
	}
	log.Info("document storage ready", zap.String("driver", DriverS3), zap.String("bucket", cfg.Bucket))
	return s, nil
}

// Service validates uploads and lays out keys per request.
type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log}
}

func (s *Service) Driver() string { return s.store.Driver() }

func (s *Service) Upload(ctx context.Context, requestID, filename string, body io.Reader, size int64, contentType string) (*Document, error) {
	if !AllowedFile(filename) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, filename)
	}
	if size <= 0 {
		return nil, ErrEmptyFile
	}

	key := RequestKey(requestID, filename)
	if err := s.store.Put(ctx, key, body, size, contentType); err != nil {
		return nil, err
	}
	url, err := s.store.URL(ctx, key)
	if err != nil {
		return nil, err
	}
	s.log.Info("document uploaded",
		zap.String("request_id", requestID),
		zap.String("key", key),
		zap.Int64("size", size))

	return &Document{
		Key:         key,
		Name:        displayName(key),
		Size:        size,
		ContentType: contentType,
		URL:         url,
		UploadedAt:  time.Now().UTC(),
	}, nil
}

// List returns the request's documents, newest upload first, with download URLs.
func (s *Service) List(ctx context.Context, requestID string) ([]Document, error) {
	docs, err := s.store.List(ctx, requestPrefix(requestID))
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].Name = displayName(docs[i].Key)
		if docs[i].URL, err = s.store.URL(ctx, docs[i].Key); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].UploadedAt.After(docs[j].UploadedAt) })
	return docs, nil
}

func AllowedFile(filename string) bool {
	_, ok := allowedExtensions[strings.ToLower(path.Ext(filename))]
	return ok
}

// RequestKey builds requests/<request id>/<name>_<uuid hex><ext>.
func RequestKey(requestID, filename string) string {
	name := secureFilename(filename)
	ext := strings.ToLower(path.Ext(name))
	stem := strings.TrimSuffix(name, path.Ext(name))
	if stem == "" {
		stem = "document"
	}
	unique := strings.ReplaceAll(uuid.NewString(), "-", "")
	return requestPrefix(requestID) + stem + "_" + unique + ext
}

func requestPrefix(requestID string) string {
	return "requests/" + requestID + "/"
}

// displayName strips the uniqueness suffix RequestKey adds.
func displayName(key string) string {
	base := path.Base(key)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if i := len(stem) - 33; i >= 0 && stem[i] == '_' {
		stem = stem[:i]
	}
	return stem + ext
}

// secureFilename keeps letters, digits, dot, dash and underscore. Whitespace becomes underscore.
func secureFilename(filename string) string {
	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	var b strings.Builder
	for _, r := range filename {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
