package main

import (
	"github.com/OFFIS-RIT/wisdom/internal/server"
	"github.com/OFFIS-RIT/wisdom/internal/util"
	"github.com/OFFIS-RIT/wisdom/pkg/logger"
	"github.com/OFFIS-RIT/wisdom/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  debug,
		Prefix: "server",
	})
	logger.Init(consoleLogger)

	server.Init()
}
