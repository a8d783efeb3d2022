package main

import (
	"os"

	"github.com/redlinehq/redline/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
