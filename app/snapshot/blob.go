package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"github.com/lysyi3m/regwatch/app/feed"
	"google.golang.org/api/iterator"
)

const (
	objectPrefix = "snapshot-"
	objectSuffix = ".json"
)

var _ Store = (*BlobStore)(nil)

// BlobStore keeps one JSON object per key, either in a local directory or in
// a Cloud Storage bucket. localPath takes precedence when set.
type BlobStore struct {
	client    *storage.Client
	logger    *slog.Logger
	localPath string
	bucket    string
}

func NewBlobStore(client *storage.Client, bucket string, localPath string, logger *slog.Logger) *BlobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlobStore{
		client:    client,
		logger:    logger,
		localPath: localPath,
		bucket:    bucket,
	}
}

// objectName maps a key to a file or object name. Keys are sanitized again
// so nothing can escape the directory.
func objectName(key string) string {
	return objectPrefix + feed.SanitizeKey(key) + objectSuffix
}

func keyFromObject(name string) string {
	return strings.TrimSuffix(strings.TrimPrefix(name, objectPrefix), objectSuffix)
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]feed.Item, error) {
	name := objectName(key)

	if s.localPath != "" {
		data, err := os.ReadFile(filepath.Join(s.localPath, name))
		if err != nil {
			if os.IsNotExist(err) {
				return []feed.Item{}, nil
			}
			return nil, fmt.Errorf("read from local storage: %w", err)
		}
		return decode(data)
	}

	var data []byte
	notFound := false
	err := retry.Do(
		func() error {
			r, openErr := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
			if openErr != nil {
				if errors.Is(openErr, storage.ErrObjectNotExist) {
					notFound = true
					return nil
				}
				return fmt.Errorf("open storage reader: %w", openErr)
			}
			defer func() {
				if closeErr := r.Close(); closeErr != nil {
					s.logger.Warn("Failed to close storage reader", "error", closeErr)
				}
			}()

			var readErr error
			data, readErr = io.ReadAll(r)
			if readErr != nil {
				return fmt.Errorf("read from storage: %w", readErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying snapshot load after error", "attempt", n, "key", key, "error", retryErr)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("load after retries: %w", err)
	}
	if notFound {
		return []feed.Item{}, nil
	}

	return decode(data)
}

func (s *BlobStore) Put(ctx context.Context, key string, items []feed.Item) error {
	name := objectName(key)

	data, err := encode(items)
	if err != nil {
		return err
	}

	if s.localPath != "" {
		if err := os.MkdirAll(s.localPath, 0o755); err != nil {
			return fmt.Errorf("create local storage directory: %w", err)
		}
		filePath := filepath.Join(s.localPath, name)
		tmpPath := filePath + ".tmp"
		if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
			return fmt.Errorf("write to local storage: %w", err)
		}
		if err := os.Rename(tmpPath, filePath); err != nil {
			return fmt.Errorf("replace local snapshot: %w", err)
		}
		s.logger.Debug("Snapshot saved to local storage", "path", filePath, "items", len(items))
		return nil
	}

	err = retry.Do(
		func() error {
			w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
			w.ContentType = "application/json"
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					s.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying snapshot save after error", "attempt", n, "key", key, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("save after retries: %w", err)
	}

	s.logger.Debug("Snapshot saved", "bucket", s.bucket, "object", name, "items", len(items))
	return nil
}

func (s *BlobStore) List(ctx context.Context) ([]Info, error) {
	var infos []Info

	if s.localPath != "" {
		entries, err := os.ReadDir(s.localPath)
		if err != nil {
			if os.IsNotExist(err) {
				return infos, nil
			}
			return nil, fmt.Errorf("read local storage directory: %w", err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasPrefix(entry.Name(), objectPrefix) || !strings.HasSuffix(entry.Name(), objectSuffix) {
				continue
			}

			key := keyFromObject(entry.Name())
			items, err := s.Get(ctx, key)
			if err != nil {
				s.logger.Warn("Failed to load snapshot", "file", entry.Name(), "error", err)
				continue
			}

			info := Info{Key: key, ItemCount: len(items)}
			if fi, err := entry.Info(); err == nil {
				info.UpdatedAt = fi.ModTime().UTC()
			}
			infos = append(infos, info)
		}

		return infos, nil
	}

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{
		Prefix: objectPrefix,
	})

	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate storage: %w", err)
		}

		key := keyFromObject(attrs.Name)
		items, err := s.Get(ctx, key)
		if err != nil {
			s.logger.Warn("Failed to load snapshot", "key", attrs.Name, "error", err)
			continue
		}

		infos = append(infos, Info{Key: key, ItemCount: len(items), UpdatedAt: attrs.Updated})
	}

	return infos, nil
}
