package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/batchedit/internal/editing"
	"github.com/lehigh-university-libraries/batchedit/internal/gemini"
	"github.com/lehigh-university-libraries/batchedit/internal/models"
	"github.com/lehigh-university-libraries/batchedit/internal/openai"
	"github.com/lehigh-university-libraries/batchedit/internal/preferences"
	"github.com/lehigh-university-libraries/batchedit/internal/providers"
	"github.com/spf13/cobra"
)

// newEditor returns the provider named by --provider, EDIT_PROVIDER, or gemini
func newEditor(name string) (providers.Editor, error) {
	if name == "" {
		name = os.Getenv("EDIT_PROVIDER")
	}
	if name == "" {
		name = "gemini"
	}

	switch strings.ToLower(name) {
	case "gemini":
		return gemini.New(), nil
	case "openai":
		return openai.New(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported provider: %s", models.ErrConfiguration, name)
	}
}

// app bundles what every editing command needs
type app struct {
	prefs   *preferences.Manager
	service *editing.Service
	store   preferences.Store
}

func (a *app) Close() {
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("Failed to close preference store", "err", err)
		}
	}
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	providerName, _ := cmd.Flags().GetString("provider")
	editor, err := newEditor(providerName)
	if err != nil {
		return nil, err
	}

	store, err := preferences.Open(ctx)
	if err != nil {
		return nil, err
	}
	a, err := loadApp(ctx, store)
	if err != nil {
		return nil, err
	}

	slog.Debug("Loaded preferences", "preferences", a.prefs.Current())

	a.service = editing.NewService(editor, a.prefs)
	return a, nil
}

// loadApp loads preferences from store, closing it if loading fails
func loadApp(ctx context.Context, store preferences.Store) (*app, error) {
	a := &app{store: store, prefs: preferences.NewManager(store)}
	if err := a.prefs.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
