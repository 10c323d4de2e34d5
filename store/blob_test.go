package store_test

import (
	"bytes"
	"context"
	"testing"

	_ "gocloud.dev/blob/fileblob"

	"github.com/tuskan/zarrengine/store"
)

func openFileBlobStore(t *testing.T) *store.BlobStore {
	t.Helper()
	dir := t.TempDir()
	s, err := store.OpenBlobStore(context.Background(), "file://"+dir)
	if err != nil {
		t.Fatalf("OpenBlobStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBlobStore_GetAbsent(t *testing.T) {
	s := openFileBlobStore(t)
	_, ok, err := s.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for an absent key")
	}
}

func TestBlobStore_SetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openFileBlobStore(t)
	want := []byte("hello blob store")
	if err := s.Set(ctx, "k", want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBlobStore_GetPartial(t *testing.T) {
	ctx := context.Background()
	s := openFileBlobStore(t)
	if err := s.Set(ctx, "k", []byte("0123456789")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.GetPartial(ctx, "k", store.ByteRange{Offset: 2, Length: 3})
	if err != nil {
		t.Fatalf("GetPartial: %v", err)
	}
	if string(got) != "234" {
		t.Errorf("GetPartial = %q, want %q", got, "234")
	}
}

func TestBlobStore_GetPartial_AbsentKey(t *testing.T) {
	s := openFileBlobStore(t)
	if _, err := s.GetPartial(context.Background(), "nope", store.ByteRange{Offset: 0, Length: 1}); err == nil {
		t.Fatal("expected an error for an absent key")
	}
}

func TestBlobStore_SetPartialMany_ReadModifyWrite(t *testing.T) {
	ctx := context.Background()
	s := openFileBlobStore(t)
	if err := s.Set(ctx, "k", []byte("aaaaaaaaaa")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	err := s.SetPartialMany(ctx, "k", []store.PartialWrite{
		{Offset: 0, Data: []byte("bb")},
		{Offset: 5, Data: []byte("cc")},
	})
	if err != nil {
		t.Fatalf("SetPartialMany: %v", err)
	}
	got, _, _ := s.Get(ctx, "k")
	if string(got) != "bbaaaccaaa" {
		t.Errorf("got %q, want %q", got, "bbaaaccaaa")
	}
}

func TestBlobStore_Erase(t *testing.T) {
	ctx := context.Background()
	s := openFileBlobStore(t)
	if err := s.Set(ctx, "k", []byte("x")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Erase(ctx, "k"); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("expected key to be absent after Erase")
	}
	if err := s.Erase(ctx, "k"); err != nil {
		t.Fatalf("Erase (already absent): %v", err)
	}
}

func TestBlobStore_Capabilities(t *testing.T) {
	s := openFileBlobStore(t)
	c := s.Capabilities()
	if !c.SupportsGetPartial {
		t.Error("expected SupportsGetPartial=true")
	}
	if c.SupportsSetPartial {
		t.Error("expected SupportsSetPartial=false (BlobStore does read-modify-write)")
	}
}
