package main

import (
	"fmt"
	"os"

	"github.com/knightynite/hidpid/src/cli"
	"github.com/knightynite/hidpid/src/utility"
)

var version = "0.1.0"

func main() {
	logger := utility.NewLogger("file", utility.INFO)
	defer logger.Close()

	logger.Info("hidpid v%s starting (pid %d)", version, os.Getpid())

	rootCmd := cli.NewCLI(logger).CreateCommands()
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
