package main

import (
	"fmt"
	"os"

	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/commands"
)

// Version is set at build time via -ldflags "-X main.Version=X.Y.Z"
var Version = "0.0.0-dev"

func main() {
	commands.AppVersion = Version
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
