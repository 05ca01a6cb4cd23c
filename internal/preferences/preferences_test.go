package preferences

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/lehigh-university-libraries/batchedit/internal/models"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, ""), mr
}

func TestStores(t *testing.T) {
	ctx := context.Background()

	stores := map[string]func(t *testing.T) Store{
		"file": func(t *testing.T) Store {
			return NewFileStore(filepath.Join(t.TempDir(), "nested", "preferences.yaml"))
		},
		"redis": func(t *testing.T) Store {
			s, _ := newRedisStore(t)
			return s
		},
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			s := open(t)

			if _, ok, err := s.Get(ctx, models.KeyResolution); err != nil || ok {
				t.Fatalf("Get() on empty store = ok %v, err %v", ok, err)
			}
			if err := s.Set(ctx, models.KeyResolution, "1920"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := s.Set(ctx, models.KeyOutputFormat, "png"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			v, ok, err := s.Get(ctx, models.KeyResolution)
			if err != nil || !ok || v != "1920" {
				t.Fatalf("Get() = %q, %v, %v", v, ok, err)
			}
		})
	}
}

func TestRedisStoreUsesOneHash(t *testing.T) {
	s, mr := newRedisStore(t)
	if err := s.Set(context.Background(), models.KeyPixelDensity, "72"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got := mr.HGet(DefaultRedisKey, models.KeyPixelDensity); got != "72" {
		t.Errorf("hash field = %q, want 72", got)
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.yaml")
	if err := os.WriteFile(path, []byte("::: not yaml ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewFileStore(path).Get(context.Background(), models.KeyResolution); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestManagerLoadDefaults(t *testing.T) {
	m := NewManager(NewFileStore(filepath.Join(t.TempDir(), "preferences.yaml")))
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := m.Current(); got != models.DefaultPreferences() {
		t.Errorf("Current() = %+v, want defaults", got)
	}
}

func TestManagerPersistsAcrossLoads(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "preferences.yaml"))

	m := NewManager(store)
	for key, value := range map[string]string{
		models.KeyCropAspectRatio: "16:9",
		models.KeyResolution:      "1920",
		models.KeyPixelDensity:    "72",
		models.KeyOutputFormat:    "webp",
	} {
		if err := m.Set(ctx, key, value); err != nil {
			t.Fatalf("Set(%s, %s) error = %v", key, value, err)
		}
	}

	reloaded := NewManager(store)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := models.OutputPreferences{CropAspectRatio: "16:9", Resolution: "1920", PixelDensity: "72", OutputFormat: models.FormatWebP}
	if got := reloaded.Current(); got != want {
		t.Errorf("Current() = %+v, want %+v", got, want)
	}

	opts := reloaded.TransformOptions()
	if opts.AspectRatio != "16:9" || opts.LongestEdge != 1920 || opts.Format != models.FormatWebP {
		t.Errorf("TransformOptions() = %+v", opts)
	}
}

type failingStore struct{ err error }

func (s failingStore) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (s failingStore) Set(context.Context, string, string) error { return s.err }

func TestManagerSetKeepsStateOnSaveFailure(t *testing.T) {
	saveErr := errors.New("disk full")
	m := NewManager(failingStore{err: saveErr})
	before := m.Current()

	err := m.Set(context.Background(), models.KeyOutputFormat, "png")
	if !errors.Is(err, saveErr) {
		t.Fatalf("Set() error = %v, want %v", err, saveErr)
	}
	if m.Current() != before {
		t.Errorf("Current() = %+v after failed save, want %+v", m.Current(), before)
	}
}

func TestManagerSetValidation(t *testing.T) {
	tests := []struct {
		key, value string
		wantErr    bool
	}{
		{models.KeyCropAspectRatio, "4:3", false},
		{models.KeyCropAspectRatio, "original", false},
		{models.KeyCropAspectRatio, "wide", true},
		{models.KeyCropAspectRatio, "0:1", true},
		{models.KeyResolution, "original", false},
		{models.KeyResolution, "1080", false},
		{models.KeyResolution, "-5", true},
		{models.KeyResolution, "big", true},
		{models.KeyResolution, "16384", false},
		{models.KeyResolution, "16385", true},
		{models.KeyResolution, "100000000", true},
		{models.KeyPixelDensity, "300", false},
		{models.KeyPixelDensity, "0", true},
		{models.KeyOutputFormat, "JPEG", false},
		{models.KeyOutputFormat, "gif", true},
		{"colour", "red", true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			m := NewManager(NewFileStore(filepath.Join(t.TempDir(), "p.yaml")))
			before := m.Current()

			err := m.Set(context.Background(), tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, models.ErrValidation) {
					t.Errorf("error %v does not wrap ErrValidation", err)
				}
				if m.Current() != before {
					t.Error("rejected value changed the in-memory preferences")
				}
			}
		})
	}
}

func TestLoadIgnoresInvalidStoredValue(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)
	_ = s.Set(ctx, models.KeyOutputFormat, "bmp")
	_ = s.Set(ctx, models.KeyResolution, "800")

	m := NewManager(s)
	if err := m.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got := m.Current()
	if got.OutputFormat != models.FormatJPEG || got.Resolution != "800" {
		t.Errorf("Current() = %+v", got)
	}
}

func TestOpen(t *testing.T) {
	t.Run("file default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prefs.yaml")
		t.Setenv("PREFERENCES_STORE", "")
		t.Setenv("PREFERENCES_PATH", path)
		s, err := Open(context.Background())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		fs, ok := s.(*FileStore)
		if !ok || fs.Path() != path {
			t.Fatalf("Open() = %#v", s)
		}
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		t.Setenv("PREFERENCES_STORE", "redis")
		t.Setenv("REDIS_URL", "redis://"+mr.Addr())
		s, err := Open(context.Background())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		rs, ok := s.(*RedisStore)
		if !ok {
			t.Fatalf("Open() = %#v", s)
		}
		_ = rs.Close()
	})

	t.Run("unknown", func(t *testing.T) {
		t.Setenv("PREFERENCES_STORE", "etcd")
		if _, err := Open(context.Background()); !errors.Is(err, models.ErrConfiguration) {
			t.Fatalf("Open() error = %v, want ErrConfiguration", err)
		}
	})
}
