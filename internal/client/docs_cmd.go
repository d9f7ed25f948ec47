package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/VinMeld/campus-chat/internal/models"
	"github.com/VinMeld/campus-chat/internal/session"
)

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsUploadCmd)
	docsCmd.AddCommand(docsDeleteCmd)
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage reference documents (administrators only)",
}

// withDocuments switches the session to the documents view before fn runs.
func withDocuments(cmd *cobra.Command, fn func(ctx context.Context, app *App)) {
	withApp(cmd, func(ctx context.Context, app *App) {
		out := cmd.OutOrStdout()
		if err := app.Session.SetView(session.ViewDocuments); err != nil {
			switch {
			case errors.Is(err, session.ErrNotAuthenticated):
				fmt.Fprintln(out, "You are not signed in. Run 'campus-chat login' first.")
			case errors.Is(err, session.ErrForbidden):
				fmt.Fprintf(out, "Document management is only available to administrators (you are %s).\n", app.Session.CurrentRole())
			default:
				fmt.Fprintln(out, "Error:", err)
			}
			return
		}
		fn(ctx, app)
	})
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded documents",
	Run: func(cmd *cobra.Command, args []string) {
		withDocuments(cmd, func(ctx context.Context, app *App) {
			docs, err := app.Registry.List(ctx)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Error listing documents:", err)
				return
			}
			printDocuments(cmd.OutOrStdout(), docs)
		})
	},
}

var docsUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withDocuments(cmd, func(ctx context.Context, app *App) {
			out := cmd.OutOrStdout()
			f, err := os.Open(args[0])
			if err != nil {
				fmt.Fprintln(out, "Error opening file:", err)
				return
			}
			defer func() { _ = f.Close() }()

			msg, err := app.Registry.Upload(ctx, filepath.Base(args[0]), f)
			if msg != "" {
				fmt.Fprintln(out, msg)
			}
			if err != nil {
				fmt.Fprintln(out, "Error uploading document:", err)
				return
			}
			printDocuments(out, app.Registry.Cached())
		})
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withDocuments(cmd, func(ctx context.Context, app *App) {
			out := cmd.OutOrStdout()
			id, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Fprintln(out, "Invalid document id:", args[0])
				return
			}
			msg, err := app.Registry.Remove(ctx, id)
			if msg != "" {
				fmt.Fprintln(out, msg)
			}
			if err != nil {
				fmt.Fprintln(out, "Error deleting document:", err)
				return
			}
			printDocuments(out, app.Registry.Cached())
		})
	},
}

func printDocuments(w io.Writer, docs []models.Document) {
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents uploaded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tUPLOADED")
	for _, d := range docs {
		size := humanize.Bytes(uint64(d.SizeMB * 1024 * 1024))
		uploaded := "-"
		if !d.UploadedAt.IsZero() {
			uploaded = humanize.Time(d.UploadedAt)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.ID, d.Filename, size, uploaded)
	}
	_ = tw.Flush()
}
