package main

import (
	"os"

	"github.com/knearme/showcase/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
