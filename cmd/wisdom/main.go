package main

import (
	"os"

	"github.com/OFFIS-RIT/wisdom/internal/util"
	"github.com/OFFIS-RIT/wisdom/pkg/logger"
	"github.com/OFFIS-RIT/wisdom/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Output: os.Stderr,
	})
	logger.Init(consoleLogger)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
