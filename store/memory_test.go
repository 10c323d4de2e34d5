package store

import (
	"bytes"
	"context"
	"reflect"
	"testing"
)

func TestMemoryStore_GetAbsent(t *testing.T) {
	s := NewMemoryStore()
	_, ok, err := s.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for an absent key")
	}
}

func TestMemoryStore_SetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	want := []byte("hello world")
	if err := s.Set(ctx, "k", want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}

	// Get returns a defensive copy: mutating it must not affect the store.
	got[0] = 'X'
	got2, _, _ := s.Get(ctx, "k")
	if got2[0] != 'h' {
		t.Error("mutating a Get result leaked into the store")
	}
}

func TestMemoryStore_GetPartial(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Set(ctx, "k", []byte("0123456789")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.GetPartial(ctx, "k", ByteRange{Offset: 2, Length: 3})
	if err != nil {
		t.Fatalf("GetPartial: %v", err)
	}
	if string(got) != "234" {
		t.Errorf("GetPartial = %q, want %q", got, "234")
	}

	// Length < 0 means "to end of value".
	got, err = s.GetPartial(ctx, "k", ByteRange{Offset: 7, Length: -1})
	if err != nil {
		t.Fatalf("GetPartial (to end): %v", err)
	}
	if string(got) != "789" {
		t.Errorf("GetPartial (to end) = %q, want %q", got, "789")
	}
}

func TestMemoryStore_GetPartial_InvalidRange(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Set(ctx, "k", []byte("short")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := s.GetPartial(ctx, "k", ByteRange{Offset: 0, Length: 100}); err == nil {
		t.Fatal("expected an error for a range exceeding the value's length")
	}
}

func TestMemoryStore_GetPartial_AbsentKey(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.GetPartial(context.Background(), "nope", ByteRange{Offset: 0, Length: 1}); err == nil {
		t.Fatal("expected an error for an absent key")
	}
}

func TestMemoryStore_GetPartialMany(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Set(ctx, "k", []byte("abcdefgh")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.GetPartialMany(ctx, "k", []ByteRange{
		{Offset: 0, Length: 2},
		{Offset: 4, Length: 4},
	})
	if err != nil {
		t.Fatalf("GetPartialMany: %v", err)
	}
	want := [][]byte{[]byte("ab"), []byte("efgh")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMemoryStore_SetPartialMany_GrowsValue(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	err := s.SetPartialMany(ctx, "k", []PartialWrite{
		{Offset: 4, Data: []byte("XYZ")},
	})
	if err != nil {
		t.Fatalf("SetPartialMany: %v", err)
	}
	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	want := []byte{0, 0, 0, 0, 'X', 'Y', 'Z'}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMemoryStore_SetPartialMany_MultipleFragments(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Set(ctx, "k", []byte("aaaaaaaaaa")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	err := s.SetPartialMany(ctx, "k", []PartialWrite{
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

func TestMemoryStore_Erase(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Set(ctx, "k", []byte("x")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Erase(ctx, "k"); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("expected key to be absent after Erase")
	}
	// Erasing an absent key is not an error.
	if err := s.Erase(ctx, "k"); err != nil {
		t.Fatalf("Erase (already absent): %v", err)
	}
}

func TestMemoryStore_Capabilities(t *testing.T) {
	s := NewMemoryStore()
	c := s.Capabilities()
	if !c.SupportsGetPartial || !c.SupportsSetPartial {
		t.Errorf("Capabilities() = %+v, want both partial ops supported", c)
	}
}
