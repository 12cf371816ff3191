package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/anthropic/kidex/internal/config"
	"github.com/anthropic/kidex/internal/daemon"
	"github.com/anthropic/kidex/internal/ipc"
)

const failureExitCode = 255

func main() {
	rootCmd := &cobra.Command{
		Use:   "kidexd",
		Short: "Live directory-index daemon",
		Long:  "kidexd watches configured directory trees and serves a live index of their contents over a local Unix socket.",
	}

	rootCmd.AddCommand(startCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(failureExitCode)
	}
}

func startCmd() *cobra.Command {
	var foreground bool
	var configPath string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the kidexd daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				p, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("locate config: %w", err)
				}
				path = p
			}

			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config %s: %w", path, err)
			}

			if !foreground {
				log.Println("hint: use --foreground to run in the current terminal")
				log.Println("background daemonization not yet implemented, running in foreground")
			}

			// The server needs the daemon as its Controller/IndexStore, and
			// the daemon needs the server to start/stop the IPC listener --
			// construct the server with nil values first, then wire the
			// daemon back in once it exists.
			server := ipc.NewServer(nil, nil)
			d := daemon.New(path, cfg, server)
			server.SetController(d)
			server.SetStore(d)

			return d.Start()
		},
	}

	cmd.Flags().BoolVar(&foreground, "foreground", false, "run in the foreground (don't daemonize)")
	cmd.Flags().StringVar(&configPath, "config", "", "path to the configuration file (default $HOME/.config/kidex.json)")

	return cmd
}
