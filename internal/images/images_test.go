package images

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestIngestFiltersNonImages(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	inputs := []Input{
		{Name: "photo.png", Data: pngBytes(t)},
		{Name: "notes.txt", Data: []byte("just some text")},
		{Name: "scan.jpg", ContentType: "image/jpeg; charset=binary", Data: []byte{0xff, 0xd8}},
		{Name: "doc.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")},
		{Name: "blob", ContentType: "application/octet-stream", Data: pngBytes(t)},
	}

	got := Ingest(inputs, now)
	if len(got) != 3 {
		t.Fatalf("Ingest() kept %d images, want 3: %+v", len(got), got)
	}

	wantNames := []string{"photo.png", "scan.jpg", "blob"}
	wantTypes := []string{"image/png", "image/jpeg", "image/png"}
	for i, img := range got {
		if img.Name != wantNames[i] || img.Payload.MIMEType != wantTypes[i] {
			t.Errorf("image %d = %s (%s), want %s (%s)", i, img.Name, img.Payload.MIMEType, wantNames[i], wantTypes[i])
		}
		if !strings.HasPrefix(img.ID, img.Name+"-1700000000000-") {
			t.Errorf("ID = %q", img.ID)
		}
		if !img.IngestedAt.Equal(now) {
			t.Errorf("IngestedAt = %v", img.IngestedAt)
		}
	}
}

func TestNewIDUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID("same.jpg", now)
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestFetchLocal(t *testing.T) {
	dir := t.TempDir()
	img := pngBytes(t)
	for name, data := range map[string][]byte{
		"b.png":    img,
		"a.png":    img,
		"note.txt": []byte("hi"),
	} {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	single := filepath.Join(t.TempDir(), "single.png")
	if err := os.WriteFile(single, img, 0o644); err != nil {
		t.Fatal(err)
	}

	inputs, err := NewFetcher().Fetch(context.Background(), []string{dir, single})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	var names []string
	for _, in := range inputs {
		names = append(names, in.Name)
	}
	want := "a.png,b.png,note.txt,single.png"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("names = %s, want %s", got, want)
	}

	if got := len(Ingest(inputs, time.Now())); got != 3 {
		t.Errorf("ingested %d images, want 3", got)
	}
}

func TestFetchMissingPath(t *testing.T) {
	_, err := NewFetcher().Fetch(context.Background(), []string{filepath.Join(t.TempDir(), "missing.png")})
	if err == nil {
		t.Fatal("expected an error for a missing path")
	}
}

func TestDownload(t *testing.T) {
	img := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photos/cat.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(img)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := &Fetcher{HTTPClient: srv.Client()}

	in, err := f.Download(context.Background(), srv.URL+"/photos/cat.png?size=large")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if in.Name != "cat.png" || in.ContentType != "image/png" || !bytes.Equal(in.Data, img) {
		t.Errorf("Download() = %s %s %d bytes", in.Name, in.ContentType, len(in.Data))
	}

	if _, err := f.Fetch(context.Background(), []string{srv.URL + "/missing.png"}); err == nil {
		t.Error("expected an error for a 404")
	}
}
