package dupes

import (
	"context"
	"os"
	"time"

	"github.com/cheggaaa/pb"
	"github.com/mattn/go-isatty"
)

// Dispatcher drives a full finddupes run: scan the index for candidate
// groups, enqueue them in controller-sized batches, then watch the queue
// until the worker bots are done.
type Dispatcher struct {
	cfg     *Config
	scanner *Scanner
	queue   JobQueue
	ctrl    *BatchController
}

func NewDispatcher(cfg *Config, scanner *Scanner, queue JobQueue) *Dispatcher {
	return &Dispatcher{
		cfg:     cfg,
		scanner: scanner,
		queue:   queue,
		ctrl:    NewBatchController(cfg),
	}
}

func (d *Dispatcher) Run(ctx context.Context, crit Criteria) error {
	groups, possible, err := d.scanner.Scan(ctx, crit)
	if err != nil {
		return err
	}
	if possible == 0 {
		logger.Info("No dupe candidates found, nothing to do")
		return nil
	}

	logger.Info("Starting to enqueue dupe file hashes...")

	batchsize := d.cfg.BatchSize
	if d.cfg.AdaptiveBatch {
		batchsize = d.cfg.BatchMin
	}
	if d.cfg.Verbose || d.cfg.Debug {
		logger.Infof("Batch size: %d", batchsize)
	}

	var batch []HashGroup
	enqueued := 0
	for _, group := range groups {
		if d.cfg.Verbose || d.cfg.Debug {
			logger.Infof("filehash: %s, filecount: %d", group.FileHash, len(group.Files))
		}
		batch = append(batch, group)
		if len(batch) < batchsize {
			continue
		}
		if err := d.queue.EnqueueGroups(ctx, crit, batch); err != nil {
			return err
		}
		enqueued++
		if d.cfg.Verbose || d.cfg.Debug {
			logger.Infof("enqueued batchsize: %d (batchsize: %d)", len(batch), batchsize)
		}
		batch = nil
		if d.cfg.AdaptiveBatch {
			backlog, err := d.queue.Backlog(ctx)
			if err != nil {
				logger.Warnf("cannot read queue backlog: %v", err)
				continue
			}
			batchsize = d.ctrl.NextSize(backlog, batchsize)
			if d.cfg.Verbose || d.cfg.Debug {
				logger.Infof("batchsize set to: %d", batchsize)
			}
		}
	}
	if len(batch) > 0 {
		if err := d.queue.EnqueueGroups(ctx, crit, batch); err != nil {
			return err
		}
		enqueued++
	}

	logger.Infof("%d possible dupe files in %d batches have been enqueued, worker bots processing dupes...", possible, enqueued)

	d.monitor(ctx, enqueued)
	return nil
}

// monitor polls the queue until it is empty and no worker bot is busy. The
// poll is advisory: it infers completion, it does not acknowledge jobs.
func (d *Dispatcher) monitor(ctx context.Context, total int) {
	var bar *pb.ProgressBar
	if d.showProgress() {
		bar = pb.New(total).Prefix("Checking")
		bar.Start()
	}

	for {
		busy, err := d.queue.WorkersBusy(ctx)
		if err != nil {
			logger.Warnf("cannot read worker state: %v", err)
		} else if !busy {
			break
		}
		if bar != nil {
			// Display-only: a backlog read failure must not stop polling.
			backlog, err := d.queue.Backlog(ctx)
			if err != nil || backlog > total {
				bar.Set(0)
			} else {
				bar.Set(total - backlog)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.cfg.PollInterval):
		}
	}

	if bar != nil {
		bar.Set(total)
		bar.Finish()
	}
}

// Progress output and verbose/debug logging are mutually exclusive modes.
func (d *Dispatcher) showProgress() bool {
	if d.cfg.Quiet || d.cfg.Verbose || d.cfg.Debug {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}
