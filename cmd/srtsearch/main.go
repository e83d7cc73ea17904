package main

import (
	"fmt"
	"os"
)

// To be set via ldflags
var (
	Version   = "local"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
