package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/simp-lee/epub2md/internal/validate"
)

func newValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate OUT",
		Short: "Check an output directory written by parse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := validate.Validate(args[0])
			w := cmd.OutOrStdout()
			if res.OK() {
				color.New(color.FgGreen, color.Bold).Fprintln(w, "Validation OK")
				return nil
			}

			errColor := color.New(color.FgRed)
			for _, msg := range res.Errors {
				errColor.Fprintf(w, "ERROR: %s\n", msg)
			}
			a.log.Debug("validation failed", zap.String("dir", args[0]), zap.Strings("errors", res.Errors))
			return fmt.Errorf("validation failed with %d error(s)", len(res.Errors))
		},
	}
}
