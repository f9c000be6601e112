package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/trailertube/internal/trailer"
	"github.com/tonimelisma/trailertube/internal/uploadops"
)

func newTrailerCmd() *cobra.Command {
	var title, author string

	cmd := &cobra.Command{
		Use:   "trailer",
		Short: "Generate a book trailer and upload it",
		Long: `Request a trailer for a book from the trailer API ([trailer] api_url) and
upload it as a private video titled "<title> Trailer".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("--title is required")
			}

			return runTrailer(cmd, title, author)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "book title")
	cmd.Flags().StringVar(&author, "author", "", "book author")

	return cmd
}

func runTrailer(cmd *cobra.Command, title, author string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	a, err := newApp(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	cc.Statusf("Generating trailer for %q...\n", title)

	sp, err := newTrailerClient(cc.Cfg, cc.Logger).Fetch(ctx, title, author)
	if err != nil {
		return err
	}

	name := trailer.FileName(title)
	progress := newProgressPrinter(cc.Flags.Quiet || cc.Flags.JSON)

	res, err := a.service.Upload(ctx, uploadops.Request{
		Account:  cc.Cfg.Account,
		Metadata: trailer.UploadMetadata(title, author, cc.Cfg.Upload.DefaultCategory),
		Payload: &uploadops.Payload{
			Name:        name,
			ContentType: "video/mp4",
			Length:      sp.Length(),
			Body:        sp,
		},
		Progress: func(ack, total int64) { progress.Report(name, ack, total) },
	})
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(res)
	}

	if res.WatchURL == "" {
		fmt.Printf("Uploaded %s (HTTP %d), no video ID returned.\n", name, res.StatusCode)
		return nil
	}

	fmt.Printf("Uploaded %s -> %s\n", name, res.WatchURL)

	return nil
}
