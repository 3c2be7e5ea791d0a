package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	chatSession string
	chatMessage string
	chatJSON    bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Send one chat message and print the reply",
	Long: `Run one chat turn through the same pipeline as POST /chat. The message
and the reply are recorded in the session history.

Examples:
  newsrag chat -s demo -m "What's happening with AI regulation?"`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "cli", "session id")
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "message (required)")
	chatCmd.Flags().BoolVar(&chatJSON, "json", false, "output as JSON")
	chatCmd.MarkFlagRequired("message")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := NewApp(ctx, GetConfig(), log)
	if err != nil {
		return err
	}
	defer app.Close()

	resp, err := app.Chat.ProcessMessage(ctx, chatSession, chatMessage)
	if err != nil {
		return err
	}

	if chatJSON {
		output, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(resp.Message)
	if len(resp.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, s := range resp.Sources {
			fmt.Printf("  - %s (%.2f) %s\n", s.Title, s.RelevanceScore, s.URL)
		}
	}
	return nil
}
