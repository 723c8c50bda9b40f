package main

import (
	"os"

	"github.com/spellang/spel/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
