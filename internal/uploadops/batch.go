package uploadops

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Job is one entry of a batch: how to open the payload and what to call it.
// Open runs inside the worker so only in-flight files hold descriptors.
type Job struct {
	Open     func() (*Payload, error)
	Build    func(p *Payload) Request
	Label    string
	Progress func(label string, acknowledged, total int64)
}

// Outcome is the result of one Job. Exactly one of Result and Err is set.
type Outcome struct {
	Label  string
	Result *Result
	Err    error
}

// UploadAll runs jobs with at most parallel uploads in flight. A failed
// upload does not stop the others; every job gets an Outcome, in job order.
// Canceling ctx stops jobs that have not started.
func (s *Service) UploadAll(ctx context.Context, jobs []Job, parallel int) []Outcome {
	if parallel < 1 {
		parallel = 1
	}

	out := make([]Outcome, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	var mu sync.Mutex

	failed := 0

	for i := range jobs {
		job := jobs[i]

		g.Go(func() error {
			o := Outcome{Label: job.Label}

			if err := gctx.Err(); err != nil {
				o.Err = err
			} else {
				o.Result, o.Err = s.runJob(gctx, job)
			}

			mu.Lock()
			out[i] = o

			if o.Err != nil {
				failed++
			}
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // workers record errors in out and never return one

	s.logger.Info("batch upload finished",
		slog.Int("total", len(jobs)),
		slog.Int("failed", failed),
		slog.Int("parallel", parallel),
	)

	return out
}

func (s *Service) runJob(ctx context.Context, job Job) (*Result, error) {
	p, err := job.Open()
	if err != nil {
		return nil, err
	}

	req := job.Build(p)

	if job.Progress != nil {
		req.Progress = func(ack, total int64) { job.Progress(job.Label, ack, total) }
	}

	return s.Upload(ctx, req)
}
