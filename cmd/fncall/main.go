package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/gaborage/fnbricks/internal/commands"
)

var version = "dev" // Will be set during build

func main() {
	if err := commands.NewRootCommand(version).Execute(); err != nil {
		if !errors.Is(err, commands.ErrCallFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
