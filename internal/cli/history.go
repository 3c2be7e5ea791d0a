package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyClear bool
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history <sessionId>",
	Short: "Show or clear the chat history of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete the session history")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sessionID := args[0]

	app, err := NewApp(ctx, GetConfig(), log)
	if err != nil {
		return err
	}
	defer app.Close()

	if historyClear {
		if err := app.History.Clear(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		fmt.Printf("Session %s cleared.\n", sessionID)
		return nil
	}

	messages := app.History.Read(ctx, sessionID)
	if historyJSON {
		output, _ := json.MarshalIndent(messages, "", "  ")
		fmt.Println(string(output))
		return nil
	}
	if len(messages) == 0 {
		fmt.Println("No messages.")
		return nil
	}
	for _, m := range messages {
		fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format(time.Kitchen), m.Sender, m.Text)
	}
	return nil
}
