package config

import (
	"context"
	"testing"

	"github.com/marmos91/remotefs/internal/bytesize"
	"github.com/marmos91/remotefs/pkg/vfs"
)

func TestCreateProvider_Memory(t *testing.T) {
	p, closer, err := CreateProvider(ProviderConfig{
		Type:      "memory",
		StoreName: "scratch",
		Capacity:  bytesize.MiB,
	})
	if err != nil {
		t.Fatalf("CreateProvider failed: %v", err)
	}
	defer func() { _ = closer.Close() }()

	store, err := p.GetFileStore(context.Background(), vfs.Root)
	if err != nil {
		t.Fatalf("GetFileStore failed: %v", err)
	}
	if store.Name() != "scratch" {
		t.Errorf("Expected store name 'scratch', got %q", store.Name())
	}
	total, err := store.TotalSpace(context.Background())
	if err != nil {
		t.Fatalf("TotalSpace failed: %v", err)
	}
	if total != int64(bytesize.MiB) {
		t.Errorf("Expected total space 1Mi, got %d", total)
	}
}

func TestCreateProvider_LocalRequiresRoot(t *testing.T) {
	if _, _, err := CreateProvider(ProviderConfig{Type: "local"}); err == nil {
		t.Fatal("Expected error for local provider without root")
	}
}

func TestCreateProvider_Unknown(t *testing.T) {
	if _, _, err := CreateProvider(ProviderConfig{Type: "s3"}); err == nil {
		t.Fatal("Expected error for unknown provider type")
	}
}
