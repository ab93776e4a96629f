package main

import (
	"os"

	"github.com/wakuwork/wakuwork/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
