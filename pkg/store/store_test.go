package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	rec := &Record{ID: "g1", Name: "diamond", Data: []byte(`{"nodes":[]}`)}
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := s.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "diamond" || string(got.Data) != `{"nodes":[]}` {
		t.Errorf("Get() = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("Put() should stamp CreatedAt")
	}

	// The store holds a copy, not the caller's slice.
	rec.Data[0] = 'X'
	got, _ = s.Get(ctx, "g1")
	if got.Data[0] == 'X' {
		t.Error("Put() should copy record data")
	}
}

func TestMemoryStorePutEmptyID(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Put(context.Background(), &Record{Name: "nameless"}); err == nil {
		t.Error("Put() with empty ID should fail")
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rec := &Record{ID: "g1", ExpiresAt: time.Now().Add(-time.Second)}
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if _, err := s.Get(ctx, "g1"); !errors.Is(err, ErrExpired) {
		t.Errorf("Get() error = %v, want ErrExpired", err)
	}
	// The expired record was lazily removed.
	if _, err := s.Get(ctx, "g1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after expiry error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Put(ctx, &Record{ID: "g1"})

	if err := s.Delete(ctx, "g1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "g1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	base := time.Now()
	s.Put(ctx, &Record{ID: "b", CreatedAt: base.Add(2 * time.Second)})
	s.Put(ctx, &Record{ID: "a", CreatedAt: base})
	s.Put(ctx, &Record{ID: "c", CreatedAt: base.Add(time.Second)})
	s.Put(ctx, &Record{ID: "old", CreatedAt: base, ExpiresAt: base.Add(-time.Hour)})

	recs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"a", "c", "b"}
	if len(recs) != len(want) {
		t.Fatalf("List() len = %d, want %d", len(recs), len(want))
	}
	for i, id := range want {
		if recs[i].ID != id {
			t.Errorf("List()[%d] = %s, want %s", i, recs[i].ID, id)
		}
	}
}

func TestMemoryStoreCleanup(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	s.Put(ctx, &Record{ID: "live"})
	s.Put(ctx, &Record{ID: "dead", ExpiresAt: time.Now().Add(-time.Minute)})

	if err := s.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if _, err := s.Get(ctx, "live"); err != nil {
		t.Errorf("Get(live) error = %v", err)
	}
	if _, err := s.Get(ctx, "dead"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(dead) error = %v, want ErrNotFound", err)
	}
}

func TestRecordIsExpired(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"zero never expires", time.Time{}, false},
		{"future", time.Now().Add(time.Hour), false},
		{"past", time.Now().Add(-time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Record{ExpiresAt: tt.at}
			if got := rec.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}
