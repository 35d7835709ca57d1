package main

import (
	"os"

	"github.com/jsMelius/Gleisure/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
