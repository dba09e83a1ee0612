package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive research session",
	Long: `Chat reads questions from stdin and answers each through the pipeline.
Besides questions it understands a few commands:

  help          show this command list
  clear         forget the questions asked so far
  stats         show safety check counters
  quit, exit, q leave the session`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		fmt.Println("scholarly interactive session. Type a research question, or 'help'.")

		asked := 0
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("scholarly> ")
			if !scanner.Scan() {
				fmt.Println()
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			switch strings.ToLower(line) {
			case "quit", "exit", "q":
				fmt.Println("bye")
				return nil
			case "help":
				printChatHelp()
				continue
			case "clear":
				asked = 0
				fmt.Println("session cleared")
				continue
			case "stats":
				printStats(app, asked)
				continue
			}

			asked++
			runCtx, cancel := queryContext(cmd.Context())
			result, err := app.pipeline.Run(runCtx, line)
			cancel()
			if err != nil {
				if cmd.Context().Err() != nil {
					fmt.Println()
					return nil
				}
				fmt.Fprintln(os.Stderr, "error:", err)
				continue
			}
			fmt.Println()
			printResult(result)
			fmt.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func printChatHelp() {
	fmt.Println(`Commands:
  help          show this command list
  clear         forget the questions asked so far
  stats         show safety check counters
  quit, exit, q leave the session

Anything else is treated as a research question.`)
}

func printStats(app *app, asked int) {
	stats := app.coordinator.Stats()
	fmt.Printf("questions:   %d this session\n", asked)
	fmt.Printf("checks:      %d (input %d, output %d)\n",
		stats.TotalChecks(), stats.InputChecks, stats.OutputChecks)
	fmt.Printf("violations:  %d (rate %.1f%%)\n",
		stats.Violations, stats.ViolationRate()*100)
	fmt.Printf("blocked:     %d\n", stats.Blocked)
	fmt.Printf("sanitized:   %d\n", stats.Sanitized)
	fmt.Printf("warned:      %d\n", stats.Warned)
}
