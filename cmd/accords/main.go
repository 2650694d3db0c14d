// Command accords explores the dataset of French company agreements on
// sustainable mobility from the command line or over HTTP.
package main

import (
	"fmt"
	"os"
)

func main() {
	cli := NewCLI()
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
