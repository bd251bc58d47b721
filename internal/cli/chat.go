package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newChatCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [question]",
		Short: "Ask the assistant a question",
		Long: `Ask the assistant a question. Without arguments the question is
prompted for when running in a terminal.

Examples:
  kbctl chat "What is the travel reimbursement limit?"`,
		RunE: withApp(flags, func(ctx context.Context, a *app, args []string) error {
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			question := strings.Join(args, " ")
			if strings.TrimSpace(question) == "" && a.interactive() {
				var err error
				if question, err = promptQuestion(); err != nil {
					return err
				}
			}

			answer, err := a.session.Chat.Ask(ctx, question)
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(map[string]any{
					"answer":       answer.Content,
					"error":        answer.IsError,
					"active_route": answer.ActiveRoute,
					"session_id":   a.session.Chat.SessionID(),
				})
			}
			style := answerStyle
			if answer.IsError {
				style = failedAnswerStyle
			}
			if _, err := fmt.Fprintln(a.out, style.Render(answer.Content)); err != nil {
				return err
			}
			if answer.IsError {
				return fmt.Errorf("the assistant could not answer")
			}
			return nil
		}),
	}
}
