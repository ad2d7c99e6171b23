package cmd

import (
	"context"

	"github.com/urfave/cli/v2"
	"github.com/zhengshuai-xiao/DupeFinder/pkg/dupes"
	"github.com/zhengshuai-xiao/DupeFinder/pkg/index"
	"github.com/zhengshuai-xiao/DupeFinder/pkg/queue"
)

func cmdWorker() *cli.Command {
	defaults := dupes.DefaultConfig()
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "es-addr",
			Value: "http://127.0.0.1:9200",
			Usage: "the address of the index service",
		},
		&cli.StringFlag{
			Name:  "redis-addr",
			Value: "127.0.0.1:6379/0",
			Usage: "the address of the job queue storage",
		},
		&cli.IntFlag{
			Name:    "threads",
			Aliases: []string{"t"},
			Value:   defaults.Threads,
			Usage:   "size of the in-process full-hash worker pool",
		},
		&cli.IntFlag{
			Name:  "blocksize",
			Value: defaults.ReadBlockSize,
			Usage: "bytes read per block while hashing full file contents",
		},
		&cli.IntFlag{
			Name:  "checkbytes",
			Value: defaults.SampleBytes,
			Usage: "bytes sampled at head and tail for the cheap pre-filter",
		},
		&cli.BoolFlag{
			Name:  "restoretimes",
			Usage: "restore file atime/mtime after reads",
		},
		&cli.DurationFlag{
			Name:  "es-timeout",
			Value: defaults.RequestTimeout,
			Usage: "per-request timeout against the index",
		},
	}

	return &cli.Command{
		Name:      "worker",
		Action:    runWorker,
		Category:  "SERVICE",
		Usage:     "Start a worker bot verifying and tagging dispatched dupe batches",
		ArgsUsage: " ",
		Description: `
			Consumes one dispatched batch at a time from the job queue, verifies
			each hashgroup by byte sampling and full md5, and writes confirmed
			dupe tags back to the index. Run one process per CPU you want busy.

			Examples:
			$ dupefinder worker -t 8 --restoretimes`,
		Flags: append(flags, outputFlags()...),
	}
}

func runWorker(c *cli.Context) error {
	cfg := dupes.DefaultConfig()
	if err := applyOutputMode(c, cfg); err != nil {
		return err
	}
	cfg.Threads = c.Int("threads")
	cfg.ReadBlockSize = c.Int("blocksize")
	cfg.SampleBytes = c.Int("checkbytes")
	cfg.RestoreTimes = c.Bool("restoretimes")
	cfg.RequestTimeout = c.Duration("es-timeout")

	es, err := index.NewClient(c.String("es-addr"), cfg.ScrollSize, cfg.RequestTimeout)
	if err != nil {
		return err
	}

	srv, err := queue.NewServer(c.String("redis-addr"))
	if err != nil {
		return err
	}

	pool := dupes.NewHashPool(cfg)
	pool.Start()
	defer pool.Stop()

	verifier := dupes.NewVerifier(cfg, pool)
	writer := dupes.NewWriter(es)

	logger.Info("worker bot ready, waiting for dupe batches...")
	return srv.Run(func(ctx context.Context, job *queue.Job) error {
		for i := range job.Groups {
			verified := verifier.Verify(&job.Groups[i])
			if verified == nil {
				continue
			}
			writer.Write(ctx, job.Criteria.Index, verified)
		}
		return nil
	})
}
