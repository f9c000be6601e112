package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/trailertube/internal/config"
	"github.com/tonimelisma/trailertube/internal/uploadops"
	"github.com/tonimelisma/trailertube/internal/youtube"
)

// errSomeUploadsFailed makes the process exit non-zero after a batch in
// which at least one file failed. The per-file errors were already printed.
var errSomeUploadsFailed = errors.New("some uploads failed")

// uploadFlags are the metadata flags shared by upload and watch.
type uploadFlags struct {
	title       string
	description string
	tags        []string
	privacy     string
	category    string
	license     string
	noEmbed     bool
}

func (f *uploadFlags) bind(cmd *cobra.Command, withTitle bool) {
	fl := cmd.Flags()

	if withTitle {
		fl.StringVar(&f.title, "title", "", "video title (default: file name); single file only")
	}

	fl.StringVar(&f.description, "description", "", "video description")
	fl.StringSliceVar(&f.tags, "tag", nil, "video tag (repeatable)")
	fl.StringVar(&f.privacy, "privacy", "", "public, private or unlisted (default from config)")
	fl.StringVar(&f.category, "category", "", "YouTube category ID (default from config)")
	fl.StringVar(&f.license, "license", "", "youtube or creativeCommon")
	fl.BoolVar(&f.noEmbed, "no-embed", false, "disallow embedding on other sites")
}

// metadataFor builds the metadata of one file from flags and config
// defaults. The title falls back to the file name without extension.
func (f *uploadFlags) metadataFor(path string, cfg *config.Resolved) youtube.Metadata {
	m := youtube.Metadata{
		Title:      f.title,
		Tags:       f.tags,
		CategoryID: f.category,
		Privacy:    f.privacy,
		Embeddable: youtube.Ptr(!f.noEmbed),
	}

	if m.Title == "" {
		m.Title = titleFromFileName(path)
	}

	if f.description != "" {
		m.Description = youtube.Ptr(f.description)
	}

	if f.license != "" {
		m.License = youtube.Ptr(f.license)
	}

	if m.Privacy == "" {
		m.Privacy = cfg.Upload.DefaultPrivacy
	}

	if m.CategoryID == "" {
		m.CategoryID = cfg.Upload.DefaultCategory
	}

	if len(m.Tags) == 0 {
		m.Tags = cfg.Upload.DefaultTags
	}

	return m
}

// titleFromFileName turns "the_left_hand.mp4" into "the left hand".
func titleFromFileName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Join(strings.FieldsFunc(base, func(r rune) bool { return r == '_' }), " ")

	return norm.NFC.String(strings.TrimSpace(base))
}

func newUploadCmd() *cobra.Command {
	var flags uploadFlags

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload video files to YouTube",
		Long: `Upload one or more files with the resumable upload protocol. Files are
uploaded concurrently (--parallel, default from config).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.title != "" && len(args) > 1 {
				return fmt.Errorf("--title applies to a single file, got %d files", len(args))
			}

			if flags.privacy != "" {
				p, err := youtube.NormalizePrivacy(flags.privacy)
				if err != nil {
					return err
				}

				flags.privacy = p
			}

			return runUpload(cmd, args, &flags)
		},
	}

	flags.bind(cmd, true)

	return cmd
}

// uploadOutput is the JSON schema of one `upload --json` entry.
type uploadOutput struct {
	File    string            `json:"file"`
	Result  *uploadops.Result `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
	Success bool              `json:"success"`
}

func runUpload(cmd *cobra.Command, paths []string, flags *uploadFlags) error {
	cc := mustCLIContext(cmd.Context())
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	a, err := newApp(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	progress := newProgressPrinter(cc.Flags.Quiet || cc.Flags.JSON)

	jobs := make([]uploadops.Job, 0, len(paths))

	for _, p := range paths {
		jobs = append(jobs, uploadops.Job{
			Label: filepath.Base(p),
			Open:  func() (*uploadops.Payload, error) { return uploadops.OpenFile(p) },
			Build: func(pl *uploadops.Payload) uploadops.Request {
				return uploadops.Request{
					Account:  cc.Cfg.Account,
					Metadata: flags.metadataFor(p, cc.Cfg),
					Payload:  pl,
				}
			},
			Progress: progress.Report,
		})
	}

	outcomes := a.service.UploadAll(ctx, jobs, cc.Cfg.Upload.ParallelUploads)

	return reportOutcomes(cc, paths, outcomes)
}

func reportOutcomes(cc *CLIContext, paths []string, outcomes []uploadops.Outcome) error {
	out := make([]uploadOutput, len(outcomes))
	failed := 0

	for i, o := range outcomes {
		out[i] = uploadOutput{File: paths[i], Result: o.Result, Success: o.Err == nil}

		if o.Err != nil {
			out[i].Error = o.Err.Error()
			failed++
		}
	}

	if cc.Flags.JSON {
		if err := printJSON(out); err != nil {
			return err
		}
	} else {
		for _, o := range out {
			switch {
			case !o.Success && len(out) == 1:
				// returned below and printed by main
			case !o.Success:
				fmt.Fprintf(os.Stderr, "FAILED %s: %s\n", o.File, o.Error)
			case o.Result.WatchURL != "":
				fmt.Printf("%s -> %s\n", o.File, o.Result.WatchURL)
			default:
				fmt.Printf("%s -> uploaded (HTTP %d, no video ID returned)\n", o.File, o.Result.StatusCode)
			}
		}
	}

	if failed == 0 {
		return nil
	}

	if failed == len(outcomes) && len(outcomes) == 1 {
		return outcomes[0].Err
	}

	cc.Statusf("%d of %d uploads failed.\n", failed, len(outcomes))

	return errSomeUploadsFailed
}
