package preferences

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/batchedit/internal/imaging"
	"github.com/lehigh-university-libraries/batchedit/internal/models"
)

// Keys lists the persisted preference keys
var Keys = []string{
	models.KeyCropAspectRatio,
	models.KeyResolution,
	models.KeyPixelDensity,
	models.KeyOutputFormat,
}

// Manager holds the in-memory copy of the output preferences and writes
// changes through to its Store
type Manager struct {
	store Store

	mu      sync.RWMutex
	current models.OutputPreferences
}

func NewManager(store Store) *Manager {
	return &Manager{
		store:   store,
		current: models.DefaultPreferences(),
	}
}

// Open builds the store selected by PREFERENCES_STORE ("file" or "redis")
func Open(ctx context.Context) (Store, error) {
	switch kind := strings.ToLower(strings.TrimSpace(os.Getenv("PREFERENCES_STORE"))); kind {
	case "", "file":
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		return NewFileStore(path), nil
	case "redis":
		return NewRedisStoreFromEnv(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown PREFERENCES_STORE %q", models.ErrConfiguration, kind)
	}
}

// Load reads every key once. Missing or invalid values keep their default.
func (m *Manager) Load(ctx context.Context) error {
	prefs := models.DefaultPreferences()

	for _, key := range Keys {
		value, ok, err := m.store.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to load preferences: %w", err)
		}
		if !ok {
			continue
		}
		if err := apply(&prefs, key, value); err != nil {
			slog.Warn("Ignoring invalid stored preference", "key", key, "value", value, "err", err)
		}
	}

	m.mu.Lock()
	m.current = prefs
	m.mu.Unlock()
	return nil
}

// Set validates and persists value, then updates the in-memory copy
func (m *Manager) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.current
	if err := apply(&next, key, value); err != nil {
		return err
	}
	if err := m.store.Set(ctx, key, stored(next, key)); err != nil {
		return fmt.Errorf("failed to save preference %s: %w", key, err)
	}
	m.current = next
	return nil
}

// Current returns a snapshot of the preferences
func (m *Manager) Current() models.OutputPreferences {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// TransformOptions maps the current preferences to transform options
func (m *Manager) TransformOptions() imaging.Options {
	return OptionsFor(m.Current())
}

func OptionsFor(p models.OutputPreferences) imaging.Options {
	opts := imaging.Options{
		AspectRatio: p.CropAspectRatio,
		Format:      p.OutputFormat,
	}
	if n, err := strconv.Atoi(p.Resolution); err == nil && n > 0 {
		opts.LongestEdge = n
	}
	if opts.Format == "" {
		opts.Format = models.FormatJPEG
	}
	return opts
}

// Validate checks value against the rules for key
func Validate(key, value string) error {
	p := models.DefaultPreferences()
	return apply(&p, key, value)
}

func apply(p *models.OutputPreferences, key, value string) error {
	value = strings.TrimSpace(value)

	switch key {
	case models.KeyCropAspectRatio:
		if value == "" {
			value = models.Original
		}
		if _, err := imaging.ParseAspectRatio(value); err != nil {
			return fmt.Errorf("%w: %v", models.ErrValidation, err)
		}
		p.CropAspectRatio = value
	case models.KeyResolution:
		if value == "" {
			value = models.Original
		}
		if value != models.Original {
			n, err := positiveInt(value)
			if err != nil {
				return fmt.Errorf("%w: invalid resolution %q: %v", models.ErrValidation, value, err)
			}
			if n > imaging.MaxLongestEdge {
				return fmt.Errorf("%w: resolution %d exceeds %d", models.ErrValidation, n, imaging.MaxLongestEdge)
			}
		}
		p.Resolution = value
	case models.KeyPixelDensity:
		if _, err := positiveInt(value); err != nil {
			return fmt.Errorf("%w: invalid pixel density %q: %v", models.ErrValidation, value, err)
		}
		p.PixelDensity = value
	case models.KeyOutputFormat:
		f, ok := models.ParseFormat(value)
		if !ok {
			return fmt.Errorf("%w: unsupported output format %q", models.ErrValidation, value)
		}
		p.OutputFormat = f
	default:
		return fmt.Errorf("%w: unknown preference %q", models.ErrValidation, key)
	}
	return nil
}

func stored(p models.OutputPreferences, key string) string {
	switch key {
	case models.KeyCropAspectRatio:
		return p.CropAspectRatio
	case models.KeyResolution:
		return p.Resolution
	case models.KeyPixelDensity:
		return p.PixelDensity
	default:
		return string(p.OutputFormat)
	}
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return n, nil
}
