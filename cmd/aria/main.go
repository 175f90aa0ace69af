package main

import (
	"os"

	"github.com/antoniostano/aria/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
