// Command heartml trains, serves and queries the heart disease classifier.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewCLI().Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
