package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/trailertube/internal/inbox"
	"github.com/tonimelisma/trailertube/internal/uploadops"
)

func newWatchCmd() *cobra.Command {
	var (
		flags    uploadFlags
		existing bool
		doneDir  string
	)

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Upload video files as they appear in a directory",
		Long: `Watch a directory ([watch] dir by default) and upload every new video
file once it has stopped changing for the settle time. Titles come from
the file names. Stop with Ctrl-C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			dir := cc.Cfg.Watch.Dir
			if len(args) == 1 {
				dir = args[0]
			}

			if dir == "" {
				return fmt.Errorf("no directory to watch: pass one or set [watch] dir in %s", cc.Cfg.ConfigPath)
			}

			info, err := os.Stat(dir)
			if err != nil {
				return err
			}

			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}

			return runWatch(cmd, dir, doneDir, existing, &flags)
		},
	}

	flags.bind(cmd, false)
	cmd.Flags().BoolVar(&existing, "existing", false, "also upload files already in the directory")
	cmd.Flags().StringVar(&doneDir, "done-dir", "", "move uploaded files into this directory")

	return cmd
}

func runWatch(cmd *cobra.Command, dir, doneDir string, existing bool, flags *uploadFlags) error {
	cc := mustCLIContext(cmd.Context())
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	a, err := newApp(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	w := inbox.New(inbox.Options{
		Dir:          dir,
		Extensions:   cc.Cfg.Watch.Extensions,
		Settle:       cc.Cfg.WatchSettle,
		ScanExisting: existing,
	}, cc.Logger)

	settled := make(chan string)
	progress := newProgressPrinter(cc.Flags.Quiet || cc.Flags.JSON)

	cc.Statusf("Watching %s for new videos (Ctrl-C to stop)...\n", dir)

	g, gctx := errgroup.WithContext(ctx)
	gctx, stop := context.WithCancel(gctx)

	g.Go(func() error {
		defer stop()
		return w.Watch(gctx, settled)
	})

	// settled is never closed: settle timers may still fire after Watch returns.
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case path := <-settled:
				uploadSettled(gctx, cc, a.service, path, doneDir, flags, progress)
			}
		}
	})

	return g.Wait()
}

// uploadSettled uploads one file. Failures are logged and the watch goes
// on with the next file.
func uploadSettled(
	ctx context.Context, cc *CLIContext, svc *uploadops.Service,
	path, doneDir string, flags *uploadFlags, progress *progressPrinter,
) {
	logger := cc.Logger.With(slog.String("path", path))
	name := filepath.Base(path)

	payload, err := uploadops.OpenFile(path)
	if err != nil {
		logger.Error("opening settled file", slog.String("error", err.Error()))
		return
	}

	res, err := svc.Upload(ctx, uploadops.Request{
		Account:  cc.Cfg.Account,
		Metadata: flags.metadataFor(path, cc.Cfg),
		Payload:  payload,
		Progress: func(ack, total int64) { progress.Report(name, ack, total) },
	})
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("upload failed", slog.String("error", err.Error()))
			fmt.Fprintf(os.Stderr, "FAILED %s: %v\n", path, err)
		}

		return
	}

	if cc.Flags.JSON {
		if err := printJSON(uploadOutput{File: path, Result: res, Success: true}); err != nil {
			logger.Warn("printing result", slog.String("error", err.Error()))
		}
	} else {
		fmt.Printf("%s -> %s\n", path, displayURL(res))
	}

	if doneDir != "" {
		moveDone(logger, path, doneDir)
	}
}

func displayURL(res *uploadops.Result) string {
	if res.WatchURL != "" {
		return res.WatchURL
	}

	return fmt.Sprintf("uploaded (HTTP %d, no video ID returned)", res.StatusCode)
}

func moveDone(logger *slog.Logger, path, doneDir string) {
	if err := os.MkdirAll(doneDir, pidDirPermissions); err != nil {
		logger.Warn("creating done directory", slog.String("error", err.Error()))
		return
	}

	dst := filepath.Join(doneDir, filepath.Base(path))
	if err := os.Rename(path, dst); err != nil {
		logger.Warn("moving uploaded file", slog.String("error", err.Error()))
		return
	}

	logger.Debug("moved uploaded file", slog.String("to", dst))
}
