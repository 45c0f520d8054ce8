package main

import (
	"fmt"
	"os"

	"github.com/autonome/autonome/internal/config"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "autonome",
		Short:        "Crypto chat bots backed by conversational agents",
		SilenceUsage: true,
	}

	cmd.AddCommand(newAIServiceCmd(config.ServiceAdvisor, "Serve the crypto advisor AI on /discuss-crypto"))
	cmd.AddCommand(newAIServiceCmd(config.ServiceCommentator, "Serve the group commentator AI on /discuss-crypto"))
	cmd.AddCommand(newBotCmd())
	cmd.AddCommand(newRegistryCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "autonome %s\n", version)
			if commit != "" && commit != "none" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\n", commit)
			}
			return nil
		},
	}
}
