package natsstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/platform/logger"
)

// urlScheme prefixes every stored audio URL.
const urlScheme = "nats"

// AudioStore stores synthesized audio in a NATS JetStream object store bucket.
type AudioStore struct {
	bucket string
	store  nats.ObjectStore
	logger *slog.Logger
}

// New creates the bucket if needed and returns an AudioStore bound to it.
// If logger is nil, a default logger will be used.
func New(js nats.JetStreamContext, bucket string, log *slog.Logger) (*AudioStore, error) {
	if js == nil {
		return nil, errors.New("jetstream context cannot be nil")
	}
	if bucket == "" {
		return nil, errors.New("bucket cannot be empty")
	}
	if log == nil {
		log = slog.Default()
	}

	// Create-first; bind when the bucket already exists.
	store, err := js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucket,
		Description: fmt.Sprintf("Synthesized audio for the %s bucket.", bucket),
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if errors.Is(err, jetstream.ErrBucketExists) || errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			store, err = js.ObjectStore(bucket)
			if err != nil {
				return nil, fmt.Errorf("failed to bind to existing bucket %q: %w", bucket, err)
			}
		} else {
			return nil, fmt.Errorf("failed to create bucket %q: %w", bucket, err)
		}
	}

	return &AudioStore{
		bucket: bucket,
		store:  store,
		logger: log.With(slog.String("component", "audio_store")),
	}, nil
}

// Upload saves audio under the given object name, replacing any previous
// object with that name, and returns its URL.
func (s *AudioStore) Upload(ctx context.Context, name string, data []byte) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.store.Put(&nats.ObjectMeta{Name: name}, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to put object %q to bucket %q: %w", name, s.bucket, err)
	}

	url := s.URL(name)
	log.Debug("audio uploaded",
		slog.String("object", name),
		slog.String("url", url),
		slog.String("size", humanize.Bytes(uint64(len(data)))))
	return url, nil
}

// Download retrieves an object's audio data by name.
func (s *AudioStore) Download(_ context.Context, name string) ([]byte, error) {
	obj, err := s.store.Get(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get object %q from bucket %q: %w", name, s.bucket, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %q: %w", name, err)
	}
	return data, nil
}

// URL returns the address recorded on tasks and documents for an object.
func (s *AudioStore) URL(name string) string {
	return fmt.Sprintf("%s://%s/%s", urlScheme, s.bucket, name)
}

// ObjectName returns the canonical object name for one segment's audio.
// Re-synthesizing a segment overwrites its previous audio.
func ObjectName(schemeID int64, schemeIndex int, segmentKey domain.SegmentKey) string {
	return fmt.Sprintf("%d-%d-%s.wav", schemeID, schemeIndex, segmentKey)
}
