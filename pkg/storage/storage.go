// Package storage provides the blob store the ingestion tools share,
// backed by an Azure Blob Storage container.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/shoeboxd/shoebox/pkg/lifecycle"
)

// System is the blob surface the ingestion tools run against. Keys are
// slash-separated paths inside one container; operations on a missing
// blob return ErrNotFound.
type System interface {
	// Start registers a startup hook that ensures the container exists.
	Start(lc *lifecycle.Coordinator) error
	// Upload streams reader into the blob at key with the given content type.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	// UploadFile uploads a local file to the blob at key, inferring the
	// content type from the file extension.
	UploadFile(ctx context.Context, key, path string) error
	// Download opens the blob at key for reading. The caller closes it.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// DownloadToFile streams the blob at key into a local file and reports
	// the bytes written.
	DownloadToFile(ctx context.Context, key, path string) (int64, error)
	// Delete removes the blob at key.
	Delete(ctx context.Context, key string) error
	// Exists reports whether a blob is present at key.
	Exists(ctx context.Context, key string) (bool, error)
	// List returns every key under prefix; an empty prefix walks the whole
	// container.
	List(ctx context.Context, prefix string) ([]string, error)
}

type store struct {
	client    *azblob.Client
	container string
	pageSize  int32
	logger    *slog.Logger
}

// New builds a storage system over the configured container. The
// connection string is validated here; no request is made until the
// first operation.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &store{
		client:    client,
		container: cfg.ContainerName,
		pageSize:  int32(cfg.MaxListSize),
		logger:    logger.With("system", "storage"),
	}, nil
}

func (s *store) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func() {
		_, err := s.client.CreateContainer(lc.Context(), s.container, nil)
		switch {
		case err == nil:
			s.logger.Info("storage container created", "container", s.container)
		case bloberror.HasCode(err, bloberror.ContainerAlreadyExists):
			s.logger.Debug("storage container present", "container", s.container)
		default:
			s.logger.Error("storage container init failed", "error", err)
		}
	})

	return nil
}

func (s *store) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	opts := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	}
	if _, err := s.client.UploadStream(ctx, s.container, key, reader, opts); err != nil {
		return fmt.Errorf("upload blob %s: %w", key, err)
	}
	return nil
}

func (s *store) UploadFile(ctx context.Context, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return s.Upload(ctx, key, f, ContentTypeFor(path))
}

func (s *store) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if err != nil {
		return nil, mapBlobError(err, "download", key)
	}
	return resp.Body, nil
}

func (s *store) DownloadToFile(ctx context.Context, key, path string) (int64, error) {
	reader, err := s.Download(ctx, key)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}

	written, err := io.Copy(f, reader)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("write blob %s to %s: %w", key, path, err)
	}

	return written, nil
}

func (s *store) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if _, err := s.client.DeleteBlob(ctx, s.container, key, nil); err != nil {
		return mapBlobError(err, "delete", key)
	}
	return nil
}

func (s *store) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	blobClient := s.client.
		ServiceClient().
		NewContainerClient(s.container).
		NewBlobClient(key)

	_, err := blobClient.GetProperties(ctx, nil)
	switch {
	case err == nil:
		return true, nil
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("check blob %s: %w", key, err)
	}
}

func (s *store) List(ctx context.Context, prefix string) ([]string, error) {
	opts := &azblob.ListBlobsFlatOptions{MaxResults: &s.pageSize}
	if prefix != "" {
		opts.Prefix = &prefix
	}

	names := make([]string, 0)
	pager := s.client.NewListBlobsFlatPager(s.container, opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list blobs %s: %w", prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}

	return names, nil
}

// ContentTypeFor resolves the MIME type for a file name from its
// extension, falling back to application/octet-stream.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func mapBlobError(err error, op, key string) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s blob %s: %w", op, key, err)
}

func validateKey(key string) error {
	switch {
	case key == "":
		return ErrEmptyKey
	case strings.Contains(key, ".."):
		return ErrInvalidKey
	}
	return nil
}
