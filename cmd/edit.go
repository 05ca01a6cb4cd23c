package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/batchedit/internal/editing"
	"github.com/lehigh-university-libraries/batchedit/internal/export"
	"github.com/lehigh-university-libraries/batchedit/internal/images"
	"github.com/lehigh-university-libraries/batchedit/internal/models"
	"github.com/lehigh-university-libraries/batchedit/internal/storage"
	"github.com/spf13/cobra"
)

func newEditCmd() *cobra.Command {
	var (
		prompt     string
		preset     string
		aspect     string
		resolution string
		format     string
		ppi        string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "edit [paths or URLs...]",
		Short: "Apply a text-described edit to a batch of images",
		Long: `Sends every image to the image provider with the given prompt, then crops,
resizes and re-encodes each result according to the output preferences.

Output flags that are set are saved as the new preferences.`,
		Example: `  # Apply a preset to every image in a directory
  batchedit edit ./photos --preset standard --output ./edited

  # Custom prompt, cropped to 16:9 and resized to 1920px PNG
  batchedit edit a.jpg b.jpg --prompt "make it look like golden hour" --aspect 16:9 --resolution 1920 --format png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if preset != "" {
				p, err := editing.Preset(preset)
				if err != nil {
					return fmt.Errorf("%w (available: %s)", err, strings.Join(editing.PresetNames(), ", "))
				}
				prompt = p
			}

			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, f := range []struct {
				flag, key string
				value     *string
			}{
				{"aspect", models.KeyCropAspectRatio, &aspect},
				{"resolution", models.KeyResolution, &resolution},
				{"format", models.KeyOutputFormat, &format},
				{"ppi", models.KeyPixelDensity, &ppi},
			} {
				if !cmd.Flags().Changed(f.flag) {
					continue
				}
				if err := a.prefs.Set(ctx, f.key, *f.value); err != nil {
					return err
				}
			}

			sess, err := loadSession(ctx, args)
			if err != nil {
				return err
			}

			start := time.Now()
			report, err := a.service.Edit(ctx, sess, prompt)
			if err != nil {
				return err
			}
			slog.Info("Edit finished", "images", len(sess.Images()), "duration", time.Since(start))

			if err := writeResults(cmd.OutOrStdout(), sess, output); err != nil {
				return err
			}
			return summarize(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "Edit instruction")
	cmd.Flags().StringVar(&preset, "preset", "", "Named prompt preset ("+strings.Join(editing.PresetNames(), ", ")+")")
	cmd.Flags().StringVar(&aspect, "aspect", "", "Crop aspect ratio, w:h or original")
	cmd.Flags().StringVar(&resolution, "resolution", "", "Longest edge in pixels, or original")
	cmd.Flags().StringVar(&format, "format", "", "Output format: jpg, png or webp")
	cmd.Flags().StringVar(&ppi, "ppi", "", "Pixel density to record")
	cmd.Flags().StringVarP(&output, "output", "o", "edited", "Directory for the edited images")
	cmd.MarkFlagsMutuallyExclusive("prompt", "preset")

	return cmd
}

// loadSession fetches and ingests sources into a fresh session
func loadSession(ctx context.Context, sources []string) (*storage.Session, error) {
	inputs, err := images.NewFetcher().Fetch(ctx, sources)
	if err != nil {
		return nil, err
	}

	added := images.Ingest(inputs, time.Now())
	if len(added) == 0 {
		return nil, fmt.Errorf("%w: no images found in %s", models.ErrValidation, strings.Join(sources, ", "))
	}
	if skipped := len(inputs) - len(added); skipped > 0 {
		slog.Info("Skipped non-image files", "count", skipped)
	}

	sess := storage.NewSession()
	sess.AddImages(added...)
	return sess, nil
}

func writeResults(w io.Writer, sess *storage.Session, dir string) error {
	for _, img := range sess.Images() {
		result, ok := sess.Result(img.ID)
		if !ok {
			continue
		}
		path, err := export.Write(dir, export.EditedFileName(img.Name, result.Payload), result.Payload)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s -> %s\n", img.Name, path)
	}
	return nil
}

func summarize(w io.Writer, report editing.Report) error {
	if !report.Failed() {
		fmt.Fprintf(w, "%d image(s) processed\n", len(report.Succeeded))
		return nil
	}

	fmt.Fprintf(w, "%d image(s) processed, %d failed:\n", len(report.Succeeded), len(report.Failures))
	for _, f := range report.Failures {
		fmt.Fprintf(w, "  %s: %v\n", f.Name, f.Err)
	}
	return fmt.Errorf("%d of %d images failed", len(report.Failures), len(report.Failures)+len(report.Succeeded))
}
