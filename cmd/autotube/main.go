package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCommand().Execute()
	if err == nil {
		return
	}
	// Job failures and interrupts have already been reported by the command.
	if !errors.Is(err, errJobFailed) && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "autotube:", err)
	}
	os.Exit(1)
}
