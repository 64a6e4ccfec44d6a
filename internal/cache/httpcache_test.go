package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHTTPCache_SaveAndLoad(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: t.TempDir()}
	ctx := context.Background()
	url := "https://example.com/listings/42"
	if err := c.Save(ctx, url, "text/html", `"v1"`, "Mon, 01 Jan 2024 00:00:00 GMT", []byte("<html>42</html>")); err != nil {
		t.Fatalf("save: %v", err)
	}
	meta, err := c.LoadMeta(ctx, url)
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if meta.ETag != `"v1"` || meta.URL != url || meta.ContentType != "text/html" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	body, err := c.LoadBody(ctx, url)
	if err != nil || string(body) != "<html>42</html>" {
		t.Fatalf("unexpected body %q err=%v", body, err)
	}
}

func TestHTTPCache_Fresh(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := &HTTPCache{Dir: t.TempDir(), FreshFor: time.Hour, now: func() time.Time { return now }}
	ctx := context.Background()
	url := "https://example.com/businesses-for-sale"
	if _, _, ok := c.Fresh(ctx, url); ok {
		t.Fatalf("expected miss before save")
	}
	if err := c.Save(ctx, url, "text/html", "", "", []byte("index")); err != nil {
		t.Fatalf("save: %v", err)
	}
	body, _, ok := c.Fresh(ctx, url)
	if !ok || string(body) != "index" {
		t.Fatalf("expected fresh hit, got %q %v", body, ok)
	}
	now = now.Add(2 * time.Hour)
	if _, _, ok := c.Fresh(ctx, url); ok {
		t.Fatalf("expected stale entry to miss")
	}
}

func TestHTTPCache_FreshDisabled(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: t.TempDir()}
	ctx := context.Background()
	if err := c.Save(ctx, "https://a.example", "text/html", "", "", []byte("x")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, _, ok := c.Fresh(ctx, "https://a.example"); ok {
		t.Fatalf("zero FreshFor must always miss")
	}
	var nilCache *HTTPCache
	if _, _, ok := nilCache.Fresh(ctx, "https://a.example"); ok {
		t.Fatalf("nil cache must miss")
	}
}

func TestHTTPCache_RequiresDir(t *testing.T) {
	c := &HTTPCache{}
	if err := c.Save(context.Background(), "u", "", "", "", nil); err == nil {
		t.Fatalf("expected error without dir")
	}
}

func TestPurgeHTTPCacheByAge(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	old := &HTTPCache{Dir: dir, now: func() time.Time { return time.Now().Add(-48 * time.Hour) }}
	fresh := &HTTPCache{Dir: dir}
	ctx := context.Background()
	if err := old.Save(ctx, "https://example.com/old", "text/html", "", "", []byte("old")); err != nil {
		t.Fatalf("save old: %v", err)
	}
	if err := fresh.Save(ctx, "https://example.com/new", "text/html", "", "", []byte("new")); err != nil {
		t.Fatalf("save new: %v", err)
	}
	removed, err := PurgeHTTPCacheByAge(dir, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := fresh.LoadBody(ctx, "https://example.com/old"); err == nil {
		t.Fatalf("expected old body removed")
	}
	if _, err := fresh.LoadBody(ctx, "https://example.com/new"); err != nil {
		t.Fatalf("expected new body kept: %v", err)
	}
}

func TestPurgeHTTPCacheByAge_MissingDir(t *testing.T) {
	n, err := PurgeHTTPCacheByAge(filepath.Join(t.TempDir(), "absent"), time.Hour)
	if err != nil || n != 0 {
		t.Fatalf("expected no-op, got %d %v", n, err)
	}
}

func TestClearDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "x.body"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ClearDir(dir); err != nil {
		t.Fatalf("clear: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty dir, got %d entries err=%v", len(entries), err)
	}
	if err := ClearDir("  "); err == nil {
		t.Fatalf("expected error for blank dir")
	}
}
