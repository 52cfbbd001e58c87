package main

import (
	"errors"
	"os"

	"github.com/decisionlang/decision/cmd/decision/cmd"
	"github.com/decisionlang/decision/internal/vm"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var rtErr *vm.RuntimeError
		if errors.As(err, &rtErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
