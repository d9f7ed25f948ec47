package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/VinMeld/campus-chat/internal/models"
	"github.com/VinMeld/campus-chat/internal/role"
)

const loginTimeout = 5 * time.Minute

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	loginCmd.Flags().Bool("local", false, "Sign in with email and password instead of the browser")
	loginCmd.Flags().String("email", "", "Email for --local sign-in")
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in through the browser login window",
	Run: func(cmd *cobra.Command, args []string) {
		local, _ := cmd.Flags().GetBool("local")
		email, _ := cmd.Flags().GetString("email")
		out := cmd.OutOrStdout()

		withApp(cmd, func(ctx context.Context, app *App) {
			var (
				id  models.Identity
				err error
			)
			if local {
				id, err = localLogin(ctx, cmd, app, email)
			} else {
				id, err = popupLogin(ctx, app)
			}
			if err != nil {
				fmt.Fprintln(out, "Login failed:", err)
				return
			}
			fmt.Fprintf(out, "Signed in as %s (%s)\n", displayName(id), role.Resolve(&id))
		})
	},
}

func popupLogin(ctx context.Context, app *App) (models.Identity, error) {
	h, relay, err := app.Handshake()
	if err != nil {
		return models.Identity{}, err
	}
	defer func() { _ = relay.Close() }()

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()
	return h.Run(ctx)
}

func localLogin(ctx context.Context, cmd *cobra.Command, app *App, email string) (models.Identity, error) {
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()
	if email == "" {
		fmt.Fprint(out, "Email: ")
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return models.Identity{}, fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	password, err := readPassword(cmd, in)
	if err != nil {
		return models.Identity{}, err
	}

	id, err := app.API.SystemLogin(ctx, email, password)
	if err != nil {
		app.Notifier.Notify("Login failed", err.Error())
		return models.Identity{}, err
	}
	if err := app.Session.Login(ctx, id); err != nil {
		return models.Identity{}, err
	}
	return id, nil
}

// readPassword reads without echo on a terminal and falls back to a plain
// line read for pipes.
func readPassword(cmd *cobra.Command, in *bufio.Reader) (string, error) {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, "Password: ")
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(pw), nil
	}
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprintln(out)
	return strings.TrimRight(line, "\r\n"), nil
}

func displayName(id models.Identity) string {
	if id.DisplayName != "" {
		return id.DisplayName
	}
	return id.Email
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the saved session",
	Run: func(cmd *cobra.Command, args []string) {
		withApp(cmd, func(ctx context.Context, app *App) {
			if err := app.Session.Logout(ctx); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Error signing out:", err)
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in identity and role",
	Run: func(cmd *cobra.Command, args []string) {
		withApp(cmd, func(ctx context.Context, app *App) {
			out := cmd.OutOrStdout()
			id, ok := app.Session.Identity()
			if !ok {
				fmt.Fprintf(out, "Not signed in (%s)\n", app.Session.CurrentRole())
				return
			}
			fmt.Fprintf(out, "Email: %s\n", id.Email)
			if id.DisplayName != "" {
				fmt.Fprintf(out, "Name:  %s\n", id.DisplayName)
			}
			fmt.Fprintf(out, "Role:  %s\n", app.Session.CurrentRole())
		})
	},
}
