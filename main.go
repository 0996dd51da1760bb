package main

import (
	"os"

	"github.com/jacklau/webshot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
