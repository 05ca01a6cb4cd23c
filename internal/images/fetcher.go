package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Fetcher reads images from local paths and http(s) URLs
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsURL reports whether source should be downloaded rather than read from disk
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Fetch reads every source in order. Directories expand to the regular files
// directly inside them.
func (f *Fetcher) Fetch(ctx context.Context, sources []string) ([]Input, error) {
	var inputs []Input

	for _, source := range sources {
		if IsURL(source) {
			in, err := f.Download(ctx, source)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, in)
			continue
		}

		files, err := expand(source)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			data, err := os.ReadFile(file)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", file, err)
			}
			inputs = append(inputs, Input{Name: filepath.Base(file), Data: data})
		}
	}

	slog.Debug("Fetched inputs", "sources", len(sources), "files", len(inputs))
	return inputs, nil
}

func expand(source string) ([]string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", source, err)
	}
	if !info.IsDir() {
		return []string{source}, nil
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", source, err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(source, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Download retrieves a single image over http(s)
func (f *Fetcher) Download(ctx context.Context, rawURL string) (Input, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return Input{}, fmt.Errorf("failed to create request for %s: %w", rawURL, err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return Input{}, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Input{}, fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Input{}, fmt.Errorf("failed to read image data: %w", err)
	}

	return Input{
		Name:        nameFromURL(rawURL),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func nameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "image"
	}
	base := path.Base(u.Path)
	if base == "" || base == "/" || base == "." {
		return "image"
	}
	return base
}
