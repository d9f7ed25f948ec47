package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/VinMeld/campus-chat/internal/transcript"
)

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long:  "Start an interactive chat session. Type /logout to sign out or /quit to leave.",
	Run: func(cmd *cobra.Command, args []string) {
		withApp(cmd, func(ctx context.Context, app *App) {
			out := cmd.OutOrStdout()
			interactive := false
			if f, ok := cmd.InOrStdin().(*os.File); ok {
				interactive = term.IsTerminal(int(f.Fd()))
			}
			if id, ok := app.Session.Identity(); ok {
				fmt.Fprintf(out, "Chatting as %s (%s).\n", displayName(id), app.Session.CurrentRole())
			} else {
				fmt.Fprintln(out, "You are not signed in. Run 'campus-chat login' first.")
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				if interactive {
					fmt.Fprint(out, "you> ")
				}
				if !scanner.Scan() {
					return
				}
				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "/quit", "/exit":
					return
				case "/logout":
					if err := app.Session.Logout(ctx); err != nil {
						fmt.Fprintln(out, "Error signing out:", err)
					} else {
						fmt.Fprintln(out, "Signed out.")
					}
					continue
				}
				if err := askAndWait(ctx, app, line); err != nil && errors.Is(err, context.Canceled) {
					return
				}
			}
		})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp(cmd, func(ctx context.Context, app *App) {
			_ = askAndWait(ctx, app, strings.Join(args, " "))
		})
	},
}

// askAndWait submits one question and blocks until its answer is fully
// revealed. Failures have already been reported through the notifier.
func askAndWait(ctx context.Context, app *App, question string) error {
	if err := app.Transcript.Submit(ctx, question); err != nil {
		if errors.Is(err, transcript.ErrRevealInProgress) {
			app.Notifier.Notify("Busy", "Wait for the current answer to finish.")
		}
		return err
	}
	return app.Transcript.Wait(ctx)
}
