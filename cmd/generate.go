package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/batchedit/internal/editing"
	"github.com/lehigh-university-libraries/batchedit/internal/export"
	"github.com/lehigh-university-libraries/batchedit/internal/storage"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var (
		prompt      string
		aspectRatio string
		output      string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new image from a text prompt",
		Example: `  batchedit generate --prompt "a lighthouse at dusk, oil painting" --aspect-ratio 16:9`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			sess := storage.NewSession()
			result, err := a.service.Generate(ctx, sess, prompt, aspectRatio)
			if err != nil {
				if msg := sess.Error(); msg != "" && !editing.IsValidation(err) {
					fmt.Fprintln(cmd.ErrOrStderr(), msg)
				}
				return err
			}

			path, err := export.Write(output, export.GeneratedFileName(result.Prompt), result.Payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "Description of the image to generate")
	cmd.Flags().StringVar(&aspectRatio, "aspect-ratio", editing.DefaultGenerateAspectRatio, "Aspect ratio of the generated image")
	cmd.Flags().StringVarP(&output, "output", "o", "generated", "Directory for the generated image")

	return cmd
}
