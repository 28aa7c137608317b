// Command filterbench runs filter micro-benchmarks and reports their results.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
