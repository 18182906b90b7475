package cache

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestNewManager(t *testing.T) {
	store := NewMemoryStore()

	manager := NewManager(store)
	if manager == nil {
		t.Fatal("NewManager returned nil")
	}
	if manager.Store() != store {
		t.Error("Manager store not set correctly")
	}
	if manager.staleRetention != DefaultStaleRetention {
		t.Errorf("staleRetention = %v, want %v", manager.staleRetention, DefaultStaleRetention)
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil store")
		}
	}()
	NewManager(nil)
}

func TestManager_SetAndGet(t *testing.T) {
	manager := NewManager(NewMemoryStore())
	ctx := context.Background()

	key := CacheKey{
		Host:     "pokeapi.co",
		Endpoint: "/api/v2/pokemon/25/",
	}

	entry := &CacheEntry{
		Data:         []byte(`{"name": "pikachu"}`),
		ETag:         `"abc123"`,
		Expires:      time.Now().Add(5 * time.Minute),
		LastModified: time.Now().Add(-1 * time.Hour),
		StatusCode:   200,
		Headers:      http.Header{"Content-Type": []string{"application/json"}},
		CachedAt:     time.Now(),
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	retrieved, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if string(retrieved.Data) != string(entry.Data) {
		t.Errorf("Data mismatch: got %s, want %s", retrieved.Data, entry.Data)
	}
	if retrieved.ETag != entry.ETag {
		t.Errorf("ETag mismatch: got %s, want %s", retrieved.ETag, entry.ETag)
	}
	if retrieved.StatusCode != entry.StatusCode {
		t.Errorf("StatusCode mismatch: got %d, want %d", retrieved.StatusCode, entry.StatusCode)
	}
	if retrieved.IsExpired() {
		t.Error("retrieved entry should be fresh")
	}
}

func TestManager_Get_CacheMiss(t *testing.T) {
	manager := NewManager(NewMemoryStore())

	_, err := manager.Get(context.Background(), CacheKey{Endpoint: "/api/v2/nonexistent/"})
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestManager_Get_ExpiredEntry(t *testing.T) {
	manager := NewManager(NewMemoryStore())
	ctx := context.Background()
	key := CacheKey{Endpoint: "/api/v2/pokemon/1/"}

	// Already expired and no validators: nothing worth keeping
	entry := &CacheEntry{
		Data:    []byte(`{"name": "bulbasaur"}`),
		Expires: time.Now().Add(-1 * time.Hour),
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	_, err := manager.Get(ctx, key)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for expired entry, got %v", err)
	}
}

func TestManager_Get_StaleRevalidatableEntry(t *testing.T) {
	manager := NewManager(NewMemoryStore())
	ctx := context.Background()
	key := CacheKey{Endpoint: "/api/v2/pokemon/1/"}

	entry := &CacheEntry{
		Data:    []byte(`{"name": "bulbasaur"}`),
		ETag:    `"pokemon-1"`,
		Expires: time.Now().Add(-1 * time.Minute),
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.IsExpired() {
		t.Error("stale entry should be reported as expired")
	}
	if got.ETag != entry.ETag {
		t.Errorf("ETag = %s, want %s", got.ETag, entry.ETag)
	}
}

func TestManager_StaleRetentionDisabled(t *testing.T) {
	manager := NewManager(NewMemoryStore(), WithStaleRetention(0))
	ctx := context.Background()
	key := CacheKey{Endpoint: "/api/v2/pokemon/1/"}

	entry := &CacheEntry{
		Data:    []byte(`{"name": "bulbasaur"}`),
		ETag:    `"pokemon-1"`,
		Expires: time.Now().Add(-1 * time.Minute),
	}
	_ = manager.Set(ctx, key, entry)

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss without stale retention, got %v", err)
	}
}

func TestManager_Get_InvalidEntry(t *testing.T) {
	store := NewMemoryStore()
	manager := NewManager(store)
	ctx := context.Background()
	key := CacheKey{Endpoint: "/api/v2/pokemon/1/"}

	_ = store.Set(ctx, key.String(), []byte("not json"), time.Minute)

	_, err := manager.Get(ctx, key)
	if !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry, got %v", err)
	}
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager(NewMemoryStore())
	ctx := context.Background()
	key := CacheKey{Endpoint: "/api/v2/pokemon/4/"}

	entry := &CacheEntry{
		Data:    []byte(`{"name": "charmander"}`),
		Expires: time.Now().Add(5 * time.Minute),
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := manager.Get(ctx, key); err != nil {
		t.Fatalf("Get after Set failed: %v", err)
	}
	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err := manager.Get(ctx, key)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
}

func TestManager_UpdateTTL(t *testing.T) {
	manager := NewManager(NewMemoryStore())
	ctx := context.Background()
	key := CacheKey{Endpoint: "/api/v2/pokemon/7/"}

	entry := &CacheEntry{
		Data:    []byte(`{"name": "squirtle"}`),
		Expires: time.Now().Add(5 * time.Minute),
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	newExpires := time.Now().Add(10 * time.Minute)
	if err := manager.UpdateTTL(ctx, key, newExpires); err != nil {
		t.Fatalf("UpdateTTL failed: %v", err)
	}

	retrieved, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after UpdateTTL failed: %v", err)
	}

	diff := retrieved.Expires.Sub(newExpires)
	if diff < -1*time.Second || diff > 1*time.Second {
		t.Errorf("Expires time not updated correctly: got %v, want %v (diff: %v)",
			retrieved.Expires, newExpires, diff)
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	manager := NewManager(NewMemoryStore())

	err := manager.Set(context.Background(), CacheKey{Endpoint: "/api/v2/pokemon/"}, nil)
	if err == nil {
		t.Error("Set with nil entry should return error")
	}
}
