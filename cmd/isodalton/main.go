// isodalton - Isotopic mass distribution calculator
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/isodalton/cmd/isodalton/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
