package photos

import (
	"context"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		in     string
		suffix string
	}{
		{"laptop.png", "_laptop.jpg"},
		{`C:\Users\me\IMG 0001.JPG`, "_IMG-0001.jpg"},
		{"../../etc/passwd", "_passwd.jpg"},
		{"", ".jpg"},
	}
	for _, tt := range tests {
		got := objectName(tt.in)
		if !strings.HasSuffix(got, tt.suffix) {
			t.Errorf("objectName(%q) = %q, want suffix %q", tt.in, got, tt.suffix)
		}
		if strings.ContainsAny(got, `/\`) {
			t.Errorf("objectName(%q) = %q contains a path separator", tt.in, got)
		}
	}
}

func TestFSSaveServeDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFS(dir, "/photos")
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	ctx := context.Background()

	url, err := store.Save(ctx, "laptop.png", "image/jpeg", []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(url, "/photos/") {
		t.Fatalf("expected /photos/ url, got %q", url)
	}

	rec := httptest.NewRecorder()
	store.Handler().ServeHTTP(rec, httptest.NewRequest("GET", url, nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "jpeg-bytes" {
		t.Errorf("expected stored photo to be served, got %d %q", rec.Code, rec.Body.String())
	}

	if err := store.Delete(ctx, url); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, strings.TrimPrefix(url, "/photos/"))); !os.IsNotExist(err) {
		t.Error("expected file to be removed")
	}

	// Deleting twice or a foreign URL is harmless.
	if err := store.Delete(ctx, url); err != nil {
		t.Errorf("second Delete: %v", err)
	}
	if err := store.Delete(ctx, "https://elsewhere/x.jpg"); err != nil {
		t.Errorf("foreign Delete: %v", err)
	}
}

func TestS3SaveAndDelete(t *testing.T) {
	var mu sync.Mutex
	var requests []string
	var body []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		requests = append(requests, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPut {
			body, _ = io.ReadAll(r.Body)
		}
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx := context.Background()
	store, err := NewS3(ctx, S3Config{
		Endpoint:       srv.URL,
		Region:         "us-east-1",
		Bucket:         "auditit",
		AccessKey:      "test",
		SecretKey:      "test",
		ForcePathStyle: true,
		KeyPrefix:      "items/",
		PublicURL:      "https://cdn.example.com/auditit",
	})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}

	url, err := store.Save(ctx, "laptop.png", "image/jpeg", []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn.example.com/auditit/items/") {
		t.Errorf("unexpected url %q", url)
	}
	if err := store.Delete(ctx, url); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(requests) != 2 {
		t.Fatalf("expected 2 requests, got %v", requests)
	}
	key := strings.TrimPrefix(url, "https://cdn.example.com/auditit/")
	if requests[0] != "PUT /auditit/"+key {
		t.Errorf("unexpected upload request %q", requests[0])
	}
	if requests[1] != "DELETE /auditit/"+key {
		t.Errorf("unexpected delete request %q", requests[1])
	}
	if !strings.Contains(string(body), "jpeg-bytes") {
		t.Errorf("expected uploaded body to contain the photo, got %q", body)
	}
}

func TestS3CustomCABundle(t *testing.T) {
	var mu sync.Mutex
	var uploads int
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.Method == http.MethodPut {
			uploads++
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// The server certificate is only trusted through the bundle.
	bundle := filepath.Join(t.TempDir(), "ca.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	if err := os.WriteFile(bundle, certPEM, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AWS_CA_BUNDLE", bundle)

	ctx := context.Background()
	store, err := NewS3(ctx, S3Config{
		Endpoint:       srv.URL,
		Bucket:         "auditit",
		AccessKey:      "test",
		SecretKey:      "test",
		ForcePathStyle: true,
	})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}

	if _, err := store.Save(ctx, "laptop.png", "image/jpeg", []byte("jpeg-bytes")); err != nil {
		t.Fatalf("Save over TLS: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if uploads != 1 {
		t.Errorf("expected 1 upload, got %d", uploads)
	}
}
