package cli

import (
	"fmt"
	"io"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/guessgame/internal/config"
	"github.com/mcoot/guessgame/internal/factory"
)

func newPlayCmd() *cobra.Command {
	var callbackPort int

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the number guessing game in the terminal",
		Long: `play runs the frontend in the terminal.

Logging in opens a one-shot callback listener on 127.0.0.1 and prints the
identity provider URL to visit. The session id is kept in the session file,
so with redis storage a login survives restarts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := config.Load(cfg.EnvFile)
			if err != nil {
				return err
			}
			appCfg.PublicURL = fmt.Sprintf("http://127.0.0.1:%d", callbackPort)

			logWriter := io.Discard
			if cfg.Verbose {
				logWriter = os.Stderr
			}
			logger := appCfg.Logger(logWriter)

			factoryCfg, err := appCfg.Factory(logger)
			if err != nil {
				return err
			}
			app, err := factory.New(factoryCfg)
			if err != nil {
				return fmt.Errorf("create application: %w", err)
			}
			defer func() { _ = app.Close() }()

			sid, err := cfg.LoadSession(app.Random)
			if err != nil {
				return fmt.Errorf("load session: %w", err)
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
			listen := func() (net.Listener, error) {
				return net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", callbackPort))
			}

			term := NewTerminal(app.IdentityManager, app.GameController, sid, out, listen, printLoginURL(out))
			return term.Run(cmd.Context(), cmd.InOrStdin())
		},
	}

	cmd.Flags().IntVar(&callbackPort, "callback-port", 8765, "Loopback port for the login callback")

	return cmd
}

func printLoginURL(out *Output) func(string) error {
	return func(authURL string) error {
		out.PrintMessage("Open this URL in your browser to log in:\n  " + authURL)
		out.PrintMessage("Waiting for login...")
		return nil
	}
}
