package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/scholarly/research"
)

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Answer one research question",
	Long: `Ask runs a single query through the full pipeline: plan, research, write,
critique and revise until the critic approves or the revision limit is hit.
The answer is printed with its numbered sources.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		query := strings.Join(args, " ")
		ctx, cancel := queryContext(cmd.Context())
		defer cancel()
		result, err := app.pipeline.Run(ctx, query)
		if err != nil {
			if result != nil {
				printNotices(result)
			}
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return printJSON(cmd.OutOrStdout(), result)
		}

		printResult(result)
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("json", false, "print the full result as JSON")
	rootCmd.AddCommand(askCmd)
}

func printResult(result *research.Result) {
	fmt.Println(result.Answer)

	if len(result.Citations) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, c := range result.Citations {
			fmt.Println("  " + c)
		}
	}
	printNotices(result)
}

func printNotices(result *research.Result) {
	for _, n := range result.Notices {
		fmt.Fprintln(os.Stderr, "note:", n)
	}
	if result.Blocked() {
		fmt.Fprintln(os.Stderr, "note: the request was stopped by safety policy")
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
