package main

import (
	"os"

	"github.com/zhengshuai-xiao/DupeFinder/cmd"
	"github.com/zhengshuai-xiao/DupeFinder/internal"
)

var logger = internal.GetLogger("dupefinder_main")

func main() {
	if err := cmd.Main(os.Args); err != nil {
		logger.Fatal(err)
	}
}
