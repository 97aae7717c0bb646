package main

import (
	"github.com/astrobio/biograph/backend/internal/server"
	"github.com/astrobio/biograph/backend/internal/util"
	"github.com/astrobio/biograph/backend/pkg/logger"
	"github.com/astrobio/biograph/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
