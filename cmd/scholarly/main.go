// Package main is the entry point for the scholarly CLI: a multi-agent
// research assistant for human-computer interaction questions, with keyword
// guardrails on both the query and the answer.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/scholarly/config"
	"github.com/sweetpotato0/scholarly/pkg/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg is populated by the root command before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "scholarly",
	Short: "Multi-agent research assistant for HCI questions",
	Long: `scholarly answers human-computer interaction research questions through a
fixed pipeline of agents. A planner decomposes the question, a researcher
gathers evidence from the web and academic search, a writer drafts a cited
answer and a critic reviews it, looping into revision when needed. Keyword
guardrails screen both the incoming query and the outgoing answer.

Subcommands: ask (one query), chat (interactive), evaluate (batch judge over
a query file), guard (run the guardrails over a piece of text).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if provider, _ := cmd.Flags().GetString("provider"); provider != "" {
			loaded.LLM.Provider = provider
		}
		if model, _ := cmd.Flags().GetString("model"); model != "" {
			loaded.LLM.Model = model
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		logging.Setup(cfg.Logging.Format, cfg.Logging.Level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: built-in defaults plus environment)")
	rootCmd.PersistentFlags().String("provider", "", "override llm.provider for this run")
	rootCmd.PersistentFlags().String("model", "", "override llm.model for this run")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
