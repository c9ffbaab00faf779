package tilestore

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"

	"github.com/barrygee/tileslurp/internal/tile"
)

func openMemBucket(t *testing.T) (*blob.Bucket, *Bucket) {
	t.Helper()
	bkt, err := blob.OpenBucket(context.Background(), "mem://")
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	store := NewBucket(bkt)
	t.Cleanup(func() { _ = store.Close() })
	return bkt, store
}

func TestBucketWriteExists(t *testing.T) {
	ctx := context.Background()
	bkt, store := openMemBucket(t)

	a := tile.New(2, 3, 1)
	ok, err := store.Exists(ctx, a)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Fatal("expected tile to be absent before write")
	}

	png := []byte("\x89PNG\r\n\x1a\n rest of tile")
	if err := store.Write(ctx, a, png); err != nil {
		t.Fatalf("Write: %v", err)
	}

	ok, err = store.Exists(ctx, a)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Fatal("expected tile to exist after write")
	}

	got, err := bkt.ReadAll(ctx, "2/3/1.png")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, png) {
		t.Errorf("object contents %q, want %q", got, png)
	}

	attrs, err := bkt.Attributes(ctx, "2/3/1.png")
	if err != nil {
		t.Fatalf("Attributes: %v", err)
	}
	if attrs.ContentType != "image/png" {
		t.Errorf("content type %q, want image/png", attrs.ContentType)
	}
}

func TestBucketExistsRemovesEmptyObject(t *testing.T) {
	ctx := context.Background()
	bkt, store := openMemBucket(t)

	if err := bkt.WriteAll(ctx, "0/0/0.png", []byte{}, nil); err != nil {
		t.Fatalf("seed empty object: %v", err)
	}

	ok, err := store.Exists(ctx, tile.New(0, 0, 0))
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("empty object reported as present")
	}

	present, err := bkt.Exists(ctx, "0/0/0.png")
	if err != nil {
		t.Fatalf("bucket Exists: %v", err)
	}
	if present {
		t.Error("empty object should have been deleted")
	}
}

func TestBucketWriteEmpty(t *testing.T) {
	ctx := context.Background()
	bkt, store := openMemBucket(t)

	err := store.Write(ctx, tile.New(0, 0, 0), []byte{})
	if !errors.Is(err, ErrEmptyTile) {
		t.Errorf("expected ErrEmptyTile, got %v", err)
	}

	present, err := bkt.Exists(ctx, "0/0/0.png")
	if err != nil {
		t.Fatalf("bucket Exists: %v", err)
	}
	if present {
		t.Error("empty write created an object")
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "mem://")
	if err != nil {
		t.Fatalf("Open mem: %v", err)
	}
	if _, ok := s.(*Bucket); !ok {
		t.Errorf("mem:// opened %T, want *Bucket", s)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "tiles")
	s, err = Open(ctx, dir)
	if err != nil {
		t.Fatalf("Open dir: %v", err)
	}
	if _, ok := s.(*Disk); !ok {
		t.Errorf("directory opened %T, want *Disk", s)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOpenFileBucket(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, "file://"+filepath.ToSlash(dir))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	a := tile.New(1, 0, 1)
	if err := s.Write(ctx, a, []byte("tile bytes")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	d, err := NewDisk(dir)
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	ok, err := d.Exists(ctx, a)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("fileblob and Disk should share the same layout")
	}
}
