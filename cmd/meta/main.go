package main

import (
	"os"

	"github.com/ghostfrog/meta/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
