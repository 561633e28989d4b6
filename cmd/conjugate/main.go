// conjugate verifies Gibbs step methods against conjugate ground truth.
//
// Usage:
//
//	conjugate verify [--bundle=<name>]... [--method=gibbs|metropolis] [--parallel=N]
//	conjugate list
//	conjugate posterior --bundle=<name> [--truth=auto|closed|numeric]
//	conjugate serve
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
