package main

import (
	"os"

	"github.com/AndyVanLandhof/psychprep/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
