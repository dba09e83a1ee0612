package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/scholarly/errors"
	"github.com/sweetpotato0/scholarly/guardrail"
	"github.com/sweetpotato0/scholarly/safety"
)

var guardCmd = &cobra.Command{
	Use:   "guard [text]",
	Short: "Run the safety guardrails over a piece of text",
	Long: `Guard evaluates text against the configured guardrail rules and prints every
verdict plus the action the safety policy would take. Text comes from the
argument, or from stdin when no argument is given. Use --direction to check
text as an incoming query (input) or as an outgoing answer (output).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if strings.TrimSpace(text) == "" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			text = strings.TrimSpace(string(data))
		}
		if text == "" {
			return fmt.Errorf("no text to check")
		}

		dirFlag, _ := cmd.Flags().GetString("direction")
		var direction guardrail.Direction
		switch dirFlag {
		case "input":
			direction = guardrail.DirectionInput
		case "output":
			direction = guardrail.DirectionOutput
		default:
			return fmt.Errorf("direction must be input or output, got %q", dirFlag)
		}

		coordinator := safety.NewCoordinator(
			guardrail.NewEngine(cfg.GuardrailRules()), cfg.Policy(), safety.NopSink())

		decision := coordinator.Check(cmd.Context(), "guard-cli", text, direction)

		if len(decision.Verdicts) == 0 {
			fmt.Println("no violations")
			return nil
		}

		fmt.Printf("%-20s %-8s %-10s %s\n", "CATEGORY", "SEVERITY", "ACTION", "REASON")
		for _, v := range decision.Verdicts {
			fmt.Printf("%-20s %-8s %-10s %s\n", v.Category, v.Severity, v.Action, v.Reason)
		}

		fmt.Println()
		fmt.Println("decision:", decision.Action)
		if decision.Action == guardrail.ActionSanitize && decision.Sanitized != "" {
			fmt.Println("sanitized:", decision.Sanitized)
		}
		if decision.Blocked() {
			fmt.Println("refusal:", coordinator.RefusalMessage(direction))
			blocking := decision.Verdicts[0]
			for _, v := range decision.Verdicts {
				if v.Action == guardrail.ActionBlock {
					blocking = v
					break
				}
			}
			return &errors.SafetyBlockError{
				Direction: string(direction),
				Category:  string(blocking.Category),
				Reason:    blocking.Reason,
			}
		}
		return nil
	},
}

func init() {
	guardCmd.Flags().String("direction", "input", "check as input (query) or output (answer)")
	rootCmd.AddCommand(guardCmd)
}
