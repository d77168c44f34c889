package main

import (
	"os"

	"github.com/policycow/cowmcp/cli"
)

func main() {
	cmd := cli.RootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
