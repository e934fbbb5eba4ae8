package cli

import (
	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check a running server's health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult

			if err := NewClient(cfg.ServerURL).Get(cmd.Context(), "/healthz", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
			out.Print(result)
			return nil
		},
	}
}
