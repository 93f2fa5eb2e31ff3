package storage_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shoeboxd/shoebox/pkg/storage"
)

// Well-known azurite development credentials. No blob service needs to be
// listening; client construction never dials.
const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func newStore(t *testing.T) storage.System {
	t.Helper()

	cfg := &storage.Config{
		ContainerName:    "documents",
		ConnectionString: azuriteConnString,
		MaxListSize:      500,
	}
	sys, err := storage.New(cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return sys
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		connString string
		wantErr    bool
	}{
		{
			name:       "azurite connection string",
			connString: azuriteConnString,
			wantErr:    false,
		},
		{
			name:       "malformed connection string",
			connString: "not-a-connection-string",
			wantErr:    true,
		},
		{
			name:       "empty connection string",
			connString: "",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &storage.Config{
				ContainerName:    "documents",
				ConnectionString: tt.connString,
				MaxListSize:      500,
			}

			sys, err := storage.New(cfg, slog.Default())
			if tt.wantErr {
				if err == nil {
					t.Fatal("New() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if sys == nil {
				t.Fatal("New() returned nil system")
			}
		})
	}
}

func TestKeyValidation(t *testing.T) {
	sys := newStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{
			name:    "empty key",
			key:     "",
			wantErr: storage.ErrEmptyKey,
		},
		{
			name:    "parent traversal",
			key:     "raw/../secrets/key",
			wantErr: storage.ErrInvalidKey,
		},
		{
			name:    "double dot prefix",
			key:     "raw/..hidden/receipt.pdf",
			wantErr: storage.ErrInvalidKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := sys.Upload(ctx, tt.key, bytes.NewReader(nil), "application/pdf"); !errors.Is(err, tt.wantErr) {
				t.Errorf("Upload(%q) error = %v, want %v", tt.key, err, tt.wantErr)
			}
			if _, err := sys.Download(ctx, tt.key); !errors.Is(err, tt.wantErr) {
				t.Errorf("Download(%q) error = %v, want %v", tt.key, err, tt.wantErr)
			}
			if err := sys.Delete(ctx, tt.key); !errors.Is(err, tt.wantErr) {
				t.Errorf("Delete(%q) error = %v, want %v", tt.key, err, tt.wantErr)
			}
			if _, err := sys.Exists(ctx, tt.key); !errors.Is(err, tt.wantErr) {
				t.Errorf("Exists(%q) error = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	sentinels := []error{storage.ErrNotFound, storage.ErrEmptyKey, storage.ErrInvalidKey}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %v matches %v", a, b)
			}
		}
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "pdf",
			path: "raw/ab12cd34.pdf",
			want: "application/pdf",
		},
		{
			name: "png scan",
			path: "scan-001.png",
			want: "image/png",
		},
		{
			name: "uppercase extension",
			path: "RECEIPT.PDF",
			want: "application/pdf",
		},
		{
			name: "json report",
			path: "processed/ab12cd34.json",
			want: "application/json",
		},
		{
			name: "unknown extension",
			path: "ledger.shoebox",
			want: "application/octet-stream",
		},
		{
			name: "no extension",
			path: "README",
			want: "application/octet-stream",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := storage.ContentTypeFor(tt.path); got != tt.want {
				t.Errorf("ContentTypeFor(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
