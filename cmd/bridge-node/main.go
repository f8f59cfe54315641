// Package main is the entry point for the bridge-node bootstrap CLI.
package main

import (
	"fmt"
	"os"

	"github.com/edencehealth/BRIDGE-Node/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
