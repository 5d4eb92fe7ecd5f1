package storage

import (
	"context"
	"testing"
)

func TestDiskFilesystemWriteReadRemove(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewDiskFilesystem(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := fs.ReadFile(ctx, "missing.jsn"); !IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}

	if err := fs.WriteFile(ctx, "a.jsn", []byte("hello")); err != nil {
		t.Fatal(err)
	}
	data, err := fs.ReadFile(ctx, "a.jsn")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q", data)
	}

	// overwrite must replace atomically, not append
	if err := fs.WriteFile(ctx, "a.jsn", []byte("world")); err != nil {
		t.Fatal(err)
	}
	data, _ = fs.ReadFile(ctx, "a.jsn")
	if string(data) != "world" {
		t.Errorf("overwrite left stale content: %q", data)
	}

	if err := fs.Remove(ctx, "a.jsn"); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.ReadFile(ctx, "a.jsn"); !IsNotExist(err) {
		t.Errorf("expected not-exist after remove, got %v", err)
	}

	// removing twice is not an error
	if err := fs.Remove(ctx, "a.jsn"); err != nil {
		t.Errorf("double remove should be a no-op, got %v", err)
	}
}

func TestDiskFilesystemList(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewDiskFilesystem(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	_ = fs.WriteFile(ctx, "tx-1-0.jsn", []byte("{}"))
	_ = fs.WriteFile(ctx, "tx-1-1.jsn", []byte("{}"))
	_ = fs.WriteFile(ctx, "tx-2-0.jsn", []byte("{}"))
	_ = fs.WriteFile(ctx, "ocpp-config.jsn", []byte("{}"))

	keys, err := fs.List(ctx, "tx-1-")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Errorf("expected 2 keys for prefix tx-1-, got %v", keys)
	}
}

func TestNewDiskFilesystemRejectsEmptyDir(t *testing.T) {
	if _, err := NewDiskFilesystem(""); err == nil {
		t.Error("expected error for empty directory")
	}
}
