// Package main is the entry point for the pfolders binary.
package main

import (
	"os"

	"pfolders/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
