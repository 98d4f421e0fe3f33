package main

import (
	"os"

	"github.com/chargeflow/chargeflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
