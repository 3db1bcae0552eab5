package main

import (
	"os"

	"github.com/MeKo-Tech/ocreval/cmd/ocreval/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
