package main

import (
	"fmt"
	"os"

	"github.com/fridex/pkgextract/commands"
)

func main() {
	err := commands.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to execute: %s\n", err)
		os.Exit(1)
	}
}
