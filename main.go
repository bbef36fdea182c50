package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/estatehub/seeder/cmd"
)

const version = "0.1.0"

func main() {
	root := cmd.NewRootCmd()

	// Signals are handled per command: seed drains through the shutdown
	// coordinator, serve stops its HTTP server.
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
	); err != nil {
		os.Exit(1)
	}
}
