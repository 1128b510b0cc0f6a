package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/simp-lee/epub2md/internal/cli"
	"github.com/simp-lee/epub2md/internal/logger"
)

// Version information, set with -ldflags at build time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	log := logger.Must("error", false)
	defer func() {
		_ = log.Sync()
	}()

	rootCmd := cli.NewRootCommand(Version, Commit, BuildDate)
	if err := rootCmd.Execute(); err != nil {
		log.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
