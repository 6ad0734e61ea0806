// Package runner drives a Processor over a list of input files. Files are
// processed by a bounded pool of workers, each reading its file in chunks;
// the per-file results are reduced in file order so the outcome does not
// depend on scheduling.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/deoache/susy-vbf/event"
	"github.com/deoache/susy-vbf/observability"
	"github.com/deoache/susy-vbf/processor"
	"github.com/deoache/susy-vbf/reader"
)

var ErrNoFiles = errors.New("no input files")

type Config struct {
	Workers int `yaml:"workers" default:"4"`
	// Retries is how many times a failed batch is read and processed again.
	Retries int `yaml:"retries" default:"2"`
}

func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("runner: workers must be positive, got %d", c.Workers)
	}
	if c.Retries < 0 {
		return fmt.Errorf("runner: retries must not be negative, got %d", c.Retries)
	}
	return nil
}

// Opener opens one input file.
type Opener func(file string, meta event.Metadata) (reader.Source, error)

// Job is one dataset to process.
type Job struct {
	Dataset string
	Year    string
	Files   []string
	Sample  processor.Sample
}

type Runner struct {
	cfg   Config
	chunk int64
	proc  *processor.Processor
	open  Opener
	log   logrus.FieldLogger
}

// New returns a runner reading files with reader.Open.
func New(cfg Config, rcfg reader.Config, proc *processor.Processor, log logrus.FieldLogger) *Runner {
	open := func(file string, meta event.Metadata) (reader.Source, error) {
		return reader.Open(file, rcfg, meta)
	}
	return NewWithOpener(cfg, rcfg.Chunk, proc, open, log)
}

func NewWithOpener(cfg Config, chunk int64, proc *processor.Processor, open Opener, log logrus.FieldLogger) *Runner {
	return &Runner{
		cfg:   cfg,
		chunk: chunk,
		proc:  proc,
		open:  open,
		log:   log.WithField("component", "runner"),
	}
}

// Run processes every file of the job. Any unrecovered failure fails the
// whole run and no partial result is returned.
func (r *Runner) Run(ctx context.Context, job Job) (*processor.Result, error) {
	if len(job.Files) == 0 {
		return nil, fmt.Errorf("%w for dataset %s", ErrNoFiles, job.Dataset)
	}

	start := time.Now()
	results := make([]*processor.Result, len(job.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, file := range job.Files {
		g.Go(func() error {
			res, err := r.runFile(gctx, job, file)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out, err := processor.Reduce(results...)
	if err != nil {
		return nil, err
	}

	r.log.WithFields(logrus.Fields{
		"dataset":  job.Dataset,
		"files":    len(job.Files),
		"events":   out.Metadata.RawInitial,
		"sumw":     out.Metadata.SumW,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Processed dataset")

	return out, nil
}

func (r *Runner) runFile(ctx context.Context, job Job, file string) (*processor.Result, error) {
	observability.RecordFileStart(job.Dataset)
	defer observability.RecordFileDone(job.Dataset)

	src, err := r.open(file, event.Metadata{Dataset: job.Dataset, Year: job.Year})
	if err != nil {
		return nil, err
	}

	acc, err := r.proc.Empty()
	if err != nil {
		return nil, err
	}
	for _, chunk := range reader.Chunks(src.Entries(), r.chunk) {
		res, err := r.runBatch(ctx, job, src, chunk[0], chunk[1]-chunk[0])
		if err != nil {
			return nil, err
		}
		if acc, err = processor.Merge(acc, res); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// runBatch reads and processes entries [first, first+n), starting over
// from the file on failure.
func (r *Runner) runBatch(ctx context.Context, job Job, src reader.Source, first, n int64) (*processor.Result, error) {
	log := r.log.WithFields(logrus.Fields{"dataset": job.Dataset, "first": first, "events": n})

	var err error
	for attempt := 0; attempt <= r.cfg.Retries; attempt++ {
		start := time.Now()

		var res *processor.Result
		res, err = r.process(ctx, job, src, first, n)
		if err == nil {
			observability.RecordBatch(job.Dataset, observability.StatusSuccess, int(n), time.Since(start).Seconds())
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt < r.cfg.Retries {
			observability.RecordBatch(job.Dataset, observability.StatusRetried, int(n), time.Since(start).Seconds())
			log.WithError(err).WithField("attempt", attempt+1).Warn("Batch failed, retrying")
			continue
		}
		observability.RecordBatch(job.Dataset, observability.StatusFailed, int(n), time.Since(start).Seconds())
	}
	return nil, fmt.Errorf("batch at entry %d failed after %d attempts: %w", first, r.cfg.Retries+1, err)
}

func (r *Runner) process(ctx context.Context, job Job, src reader.Source, first, n int64) (*processor.Result, error) {
	b, err := src.ReadBatch(ctx, first, n)
	if err != nil {
		return nil, err
	}
	return r.proc.Process(ctx, b, job.Sample)
}
