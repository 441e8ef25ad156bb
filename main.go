package main

import (
	"os"

	"github.com/agenix-go/agenix/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
