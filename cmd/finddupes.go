package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/zhengshuai-xiao/DupeFinder/pkg/base"
	"github.com/zhengshuai-xiao/DupeFinder/pkg/dupes"
	"github.com/zhengshuai-xiao/DupeFinder/pkg/index"
	"github.com/zhengshuai-xiao/DupeFinder/pkg/queue"
)

func cmdFindDupes() *cli.Command {
	defaults := dupes.DefaultConfig()
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "index",
			Aliases:  []string{"i"},
			Usage:    "name of the file index to search",
			Required: true,
		},
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
		&cli.Int64Flag{
			Name:    "minsize",
			Aliases: []string{"s"},
			Value:   1,
			Usage:   "minimum candidate file size in bytes",
		},
		&cli.Int64Flag{
			Name:  "maxsize",
			Value: defaults.MaxSize,
			Usage: "candidate file size ceiling in bytes",
		},
		&cli.BoolFlag{
			Name:  "inchardlinks",
			Usage: "treat hard-linked copies as duplicate candidates",
		},
		&cli.IntFlag{
			Name:    "batchsize",
			Aliases: []string{"b"},
			Value:   defaults.BatchSize,
			Usage:   "hashgroups per dispatched job",
		},
		&cli.BoolFlag{
			Name:    "adaptivebatch",
			Aliases: []string{"a"},
			Usage:   "grow/shrink batch size from observed queue backlog",
		},
		&cli.IntFlag{
			Name:  "scroll-size",
			Value: defaults.ScrollSize,
			Usage: "index hits fetched per page",
		},
		&cli.DurationFlag{
			Name:  "es-timeout",
			Value: defaults.RequestTimeout,
			Usage: "per-request timeout against the index",
		},
		&cli.DurationFlag{
			Name:  "result-ttl",
			Value: defaults.ResultTTL,
			Usage: "how long finished job results are retained",
		},
		&cli.DurationFlag{
			Name:  "poll-interval",
			Value: defaults.PollInterval,
			Usage: "queue poll interval while waiting for worker bots",
		},
	}

	return &cli.Command{
		Name:      "finddupes",
		Action:    findDupes,
		Category:  "TOOL",
		Usage:     "Search an index for duplicate files and dispatch them to worker bots",
		ArgsUsage: " ",
		Description: `
			Queries the index for files sharing a filehash, batches the candidate
			groups onto the distributed job queue and waits until the worker bots
			verified and tagged them.

			Examples:
			$ dupefinder finddupes -i fileindex-2024 -s 1048576 --adaptivebatch`,
		Flags: append(flags, outputFlags()...),
	}
}

func findDupes(c *cli.Context) error {
	cfg := dupes.DefaultConfig()
	if err := applyOutputMode(c, cfg); err != nil {
		return err
	}
	cfg.MaxSize = c.Int64("maxsize")
	cfg.BatchSize = c.Int("batchsize")
	cfg.AdaptiveBatch = c.Bool("adaptivebatch")
	cfg.ScrollSize = c.Int("scroll-size")
	cfg.RequestTimeout = c.Duration("es-timeout")
	cfg.ResultTTL = c.Duration("result-ttl")
	cfg.PollInterval = c.Duration("poll-interval")

	ctx := context.Background()

	rdb, err := base.NewRedisClient(c.String("redis-addr"))
	if err != nil {
		return err
	}
	defer rdb.Close()

	lock := base.NewRunLock(rdb, c.String("index"))
	acquired, err := lock.TryLock(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("another finddupes run is already active on index %s", c.String("index"))
	}
	defer lock.Unlock()

	es, err := index.NewClient(c.String("es-addr"), cfg.ScrollSize, cfg.RequestTimeout)
	if err != nil {
		return err
	}

	q, err := queue.NewClient(c.String("redis-addr"), cfg.ResultTTL)
	if err != nil {
		return err
	}
	defer q.Close()

	crit := dupes.Criteria{
		Index:            c.String("index"),
		MinSize:          c.Int64("minsize"),
		MaxSize:          cfg.MaxSize,
		IncludeHardlinks: c.Bool("inchardlinks"),
	}

	dispatcher := dupes.NewDispatcher(cfg, dupes.NewScanner(cfg, es), q)
	return dispatcher.Run(ctx, crit)
}
