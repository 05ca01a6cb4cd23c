package cmd

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/batchedit/internal/preferences"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change the saved output preferences",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current output preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, closeFn, err := loadPreferences(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			out, err := yaml.Marshal(prefs.Current())
			if err != nil {
				return fmt.Errorf("failed to marshal preferences: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one output preference",
		Long: "Change one output preference. Keys: " + strings.Join(preferences.Keys, ", ") + `

  cropAspectRatio  original or w:h
  resolution       original or the longest edge in pixels
  ppi              pixel density, a positive integer
  outputFormat     jpg, png or webp`,
		Example: `  batchedit prefs set outputFormat webp
  batchedit prefs set cropAspectRatio 4:3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, closeFn, err := loadPreferences(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := prefs.Set(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
			return nil
		},
	})

	return cmd
}

func loadPreferences(cmd *cobra.Command) (*preferences.Manager, func(), error) {
	store, err := preferences.Open(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	a, err := loadApp(cmd.Context(), store)
	if err != nil {
		return nil, nil, err
	}
	return a.prefs, a.Close, nil
}
