package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/klwxsrx/go-throttle/pkg/log"
)

// HandleAppPanic must be deferred directly: defer cmd.HandleAppPanic(ctx, logger).
func HandleAppPanic(ctx context.Context, logger log.Logger) {
	msg := recover()
	if msg == nil {
		return
	}

	logger.WithField("panic", log.Fields{
		"message": fmt.Sprintf("%v", msg),
		"stack":   string(debug.Stack()),
	}).Error(ctx, "app failed with panic")
	os.Exit(1)
}
