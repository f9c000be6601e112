package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/trailertube/internal/youtube"
)

func newVideoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "video",
		Short: "Manage uploaded videos",
	}

	cmd.AddCommand(newVideoDeleteCmd())
	cmd.AddCommand(newVideoPrivacyCmd())

	return cmd
}

func newVideoDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <video-id>",
		Short: "Delete a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			return withService(cmd.Context(), cc, func(ctx context.Context, a *app) error {
				if err := a.service.DeleteVideo(ctx, cc.Cfg.Account, args[0]); err != nil {
					return err
				}

				cc.Logger.Info("video deleted", slog.String("video_id", args[0]))
				cc.Statusf("Deleted %s.\n", args[0])

				return nil
			})
		},
	}
}

func newVideoPrivacyCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "privacy <video-id> <public|private|unlisted>",
		Short:     "Change who can see a video",
		Args:      cobra.ExactArgs(2), //nolint:mnd // id and value
		ValidArgs: []string{youtube.PrivacyPublic, youtube.PrivacyPrivate, youtube.PrivacyUnlisted},
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			privacy, err := youtube.NormalizePrivacy(args[1])
			if err != nil {
				return err
			}

			return withService(cmd.Context(), cc, func(ctx context.Context, a *app) error {
				applied, err := a.service.UpdatePrivacy(ctx, cc.Cfg.Account, args[0], privacy)
				if err != nil {
					return err
				}

				if cc.Flags.JSON {
					return printJSON(map[string]string{"video_id": args[0], "privacy": applied})
				}

				fmt.Printf("%s is now %s.\n", args[0], applied)

				return nil
			})
		},
	}
}

// withService runs fn with an app whose store is closed afterwards.
func withService(parent context.Context, cc *CLIContext, fn func(ctx context.Context, a *app) error) error {
	ctx := shutdownContext(parent, cc.Logger)

	a, err := newApp(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
