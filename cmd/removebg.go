package cmd

import (
	"github.com/spf13/cobra"
)

func newRemoveBgCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "remove-bg [paths or URLs...]",
		Aliases: []string{"remove-background"},
		Short:   "Remove the background from a batch of images",
		Long: `Asks the image provider to isolate the main subject of every image on a
transparent background. Results are written as returned, without cropping
or re-encoding.`,
		Example: `  batchedit remove-bg product1.jpg product2.jpg --output ./cutouts`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := loadSession(ctx, args)
			if err != nil {
				return err
			}
			sess.SelectAll()

			report, err := a.service.RemoveBackground(ctx, sess)
			if err != nil {
				return err
			}

			if err := writeResults(cmd.OutOrStdout(), sess, output); err != nil {
				return err
			}
			return summarize(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "edited", "Directory for the processed images")

	return cmd
}
