package main

import (
	"fmt"
	"os"

	"kvbench/cmd"
)

func main() {
	// CLI
	if err := cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
