package main

import (
	"fmt"
	"os"

	"voxledger/cmd/voxledger/cmd"
	"voxledger/internal/config"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	cmd.Execute()
}
