// Package main provides the entry point for the thaisidecar CLI.
package main

import (
	"errors"
	"os"

	"github.com/thai-tokenizer/sidecar/cmd/thaisidecar/cmd"
)

func main() {
	err := cmd.Execute()
	if err == nil {
		return
	}

	var usageErr *cmd.UsageError
	if errors.As(err, &usageErr) {
		os.Exit(2)
	}
	os.Exit(1)
}
