package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/trailertube/internal/sessionstore"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect recorded upload sessions",
		Long: `Every upload records its session URL until the upload finishes. Rows left
behind by crashed or killed uploads are listed here and can be cleaned.`,
	}

	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsCleanCmd())

	return cmd
}

// sessionOutput is the JSON schema of one `sessions list --json` entry.
type sessionOutput struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	Length      int64     `json:"length"`
	ContentType string    `json:"content_type"`
	Account     string    `json:"account"`
	UploadURL   string    `json:"upload_url"`
	CreatedAt   time.Time `json:"created_at"`
}

func newSessionsListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded upload sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			owner := cc.Cfg.Account
			if all {
				owner = ""
			}

			return withStore(cmd.Context(), cc, func(ctx context.Context, store *sessionstore.Store) error {
				rows, err := store.List(ctx, owner)
				if err != nil {
					return err
				}

				return printSessions(cc, rows, time.Now())
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "list sessions of every account")

	return cmd
}

func printSessions(cc *CLIContext, rows []sessionstore.UploadSession, now time.Time) error {
	if cc.Flags.JSON {
		out := make([]sessionOutput, len(rows))
		for i, r := range rows {
			out[i] = sessionOutput{
				ID:          r.ID,
				FileName:    r.FileName,
				Length:      r.DeclaredLength,
				ContentType: r.ContentType,
				Account:     r.OwnerID,
				UploadURL:   r.UploadURL,
				CreatedAt:   r.CreatedAt,
			}
		}

		return printJSON(out)
	}

	if len(rows) == 0 {
		cc.Statusf("No recorded sessions.\n")
		return nil
	}

	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		table = append(table, []string{
			r.ID, r.FileName, formatSize(r.DeclaredLength), formatAge(now, r.CreatedAt), r.OwnerID,
		})
	}

	printTable(os.Stdout, []string{"ID", "FILE", "SIZE", "AGE", "ACCOUNT"}, table)

	return nil
}

func newSessionsCleanCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete session records older than a given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if olderThan < 0 {
				return fmt.Errorf("--older-than must not be negative")
			}

			return withStore(cmd.Context(), cc, func(ctx context.Context, store *sessionstore.Store) error {
				n, err := store.CleanStale(ctx, olderThan)
				if err != nil {
					return err
				}

				if cc.Flags.JSON {
					return printJSON(map[string]int{"deleted": n})
				}

				cc.Statusf("Deleted %d session record(s).\n", n)

				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", sessionstore.StaleSessionAge, "minimum age of the records to delete")

	return cmd
}

func withStore(parent context.Context, cc *CLIContext, fn func(ctx context.Context, store *sessionstore.Store) error) error {
	return withService(parent, cc, func(ctx context.Context, a *app) error {
		return fn(ctx, a.store)
	})
}
