package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anthropic/kidex/internal/config"
	"github.com/anthropic/kidex/internal/index"
	"github.com/anthropic/kidex/internal/ipc"
	"github.com/anthropic/kidex/internal/query"
)

const failureExitCode = 255

func main() {
	rootCmd := &cobra.Command{
		Use:   "kidexctl",
		Short: "Control and query a running kidexd daemon",
	}

	rootCmd.AddCommand(shutdownCmd())
	rootCmd.AddCommand(reloadConfigCmd())
	rootCmd.AddCommand(regenerateIndexCmd())
	rootCmd.AddCommand(getIndexCmd())
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(findCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(failureExitCode)
	}
}

func newClient() *ipc.Client {
	return ipc.NewClient(config.SocketPath())
}

func shutdownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "Ask the daemon to shut down",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().Quit(); err != nil {
				return err
			}
			fmt.Println("shutting down")
			return nil
		},
	}
}

func reloadConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload-config",
		Short: "Ask the daemon to re-read its configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().Reload(); err != nil {
				return err
			}
			fmt.Println("reload requested")
			return nil
		},
	}
}

func regenerateIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate-index",
		Short: "Ask the daemon to rebuild its index from the configured directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().FullIndex(); err != nil {
				return err
			}
			fmt.Println("full index requested")
			return nil
		},
	}
}

func getIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-index [path]",
		Short: "Fetch the live index, optionally scoped to a configured root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path *string
			if len(args) == 1 {
				path = &args[0]
			}

			entries, err := newClient().GetIndex(path)
			if err != nil {
				return err
			}
			return printEntries(entries, "json")
		},
	}
}

func queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <args...>",
		Short: "Filter the index server-side using the query DSL (keeps score >= 0)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := newClient().QueryIndex(ipc.QueryOptions{Tokens: args})
			if err != nil {
				return err
			}
			return printEntries(entries, "json")
		},
	}
}

func findCmd() *cobra.Command {
	var fileType string
	var dirsOnly bool
	var filesOnly bool
	var ignoreCase bool
	var caseSensitive bool
	var outputFormat string
	var limit int

	cmd := &cobra.Command{
		Use:   "find <args...>",
		Short: "Fetch the full index and filter client-side using the query DSL (keeps score > 0)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caseMode := query.CaseSmart
			switch {
			case ignoreCase:
				caseMode = query.CaseIgnore
			case caseSensitive:
				caseMode = query.CaseMatch
			}

			tokens := append([]string{}, args...)
			switch strings.ToUpper(fileType) {
			case "DIRS":
				tokens = append(tokens, "/")
			case "FILES":
				tokens = append(tokens, "f/")
			}
			if dirsOnly {
				tokens = append(tokens, "/")
			}
			if filesOnly {
				tokens = append(tokens, "f/")
			}

			entries, err := newClient().GetIndex(nil)
			if err != nil {
				return err
			}

			q := query.Parse(tokens, caseMode)
			var scored []query.Scored
			for _, e := range entries {
				if s := query.Score(q, e); s > 0 {
					scored = append(scored, query.Scored{Score: s, Entry: e})
				}
			}
			if limit > 0 {
				scored = query.PickTop(scored, limit)
			} else {
				query.SortAscending(scored)
			}

			out := make([]index.Entry, len(scored))
			for i, s := range scored {
				out[i] = s.Entry
			}
			return printEntries(out, outputFormat)
		},
	}

	cmd.Flags().StringVar(&fileType, "type", "ALL", "restrict to ALL, FILES, or DIRS")
	cmd.Flags().BoolVar(&dirsOnly, "dirs-only", false, "shorthand for --type DIRS")
	cmd.Flags().BoolVar(&filesOnly, "files-only", false, "shorthand for --type FILES")
	cmd.Flags().BoolVar(&ignoreCase, "ignore-case", false, "force case-insensitive matching")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "force case-sensitive matching")
	cmd.Flags().StringVar(&outputFormat, "output-format", "json", "json or list")
	cmd.Flags().IntVar(&limit, "limit", 0, "keep only the top N results (0 means unlimited)")

	return cmd
}

func printEntries(entries []index.Entry, format string) error {
	if format == "list" {
		for _, e := range entries {
			tag := "file"
			if e.Directory {
				tag = "dir"
			}
			fmt.Println(e.Path + "\t" + tag)
		}
		return nil
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal entries: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
