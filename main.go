package main

import (
	"os"

	"github.com/ragserve/ragserve/cli"
	"github.com/ragserve/ragserve/pkg/logger"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		logger.GetDefault().Error("command failed", "error", err)
		os.Exit(1)
	}
}
