package main

import (
	"os"

	"github.com/xela07ax/cylestio-dashboard/internal/launcher"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		logger = zap.NewNop()
	}
	code := launcher.New(logger).Run(os.Args[1:])
	logger.Sync()
	os.Exit(code)
}
