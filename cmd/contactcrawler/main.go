// The main package for the contactcrawler executable.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "contactcrawler: %v\n", err)
		os.Exit(1)
	}
}
