package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCmd().ExecuteContext(context.Background())

	var exitErr exitCodeError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.code)
	}
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "throttle:", err)
		os.Exit(1)
	}
}
