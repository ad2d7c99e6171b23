package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/zhengshuai-xiao/DupeFinder/internal"
	"github.com/zhengshuai-xiao/DupeFinder/pkg/dupes"
)

var logger = internal.GetLogger("dupefinder_cmd")

func Main(args []string) error {
	cli.VersionFlag = &cli.BoolFlag{
		Name: "version", Aliases: []string{"V"},
		Usage: "print version only",
	}
	app := &cli.App{
		Name:                 "dupefinder",
		Usage:                "Find and tag duplicate files in a crawled file index.",
		Version:              internal.Version(),
		Copyright:            "Apache License 2.0",
		HideHelpCommand:      true,
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			cmdFindDupes(),
			cmdWorker(),
		},
	}
	return app.Run(args)
}

// outputFlags are shared by both commands; the three modes are mutually
// exclusive with each other and with the progress bar.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "suppress progress output",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "log each filehash and batch instead of showing progress",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
	}
}

func applyOutputMode(c *cli.Context, cfg *dupes.Config) error {
	cfg.Quiet = c.Bool("quiet")
	cfg.Verbose = c.Bool("verbose")
	cfg.Debug = c.Bool("debug")

	n := 0
	for _, set := range []bool{cfg.Quiet, cfg.Verbose, cfg.Debug} {
		if set {
			n++
		}
	}
	if n > 1 {
		return fmt.Errorf("--quiet, --verbose and --debug are mutually exclusive")
	}

	switch {
	case cfg.Debug:
		internal.SetLogLevel(logrus.DebugLevel)
	case cfg.Quiet:
		internal.SetLogLevel(logrus.WarnLevel)
	default:
		internal.SetLogLevel(logrus.InfoLevel)
	}
	return nil
}
