package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	commoncmd "github.com/klwxsrx/go-throttle/internal/pkg/cmd"
	pkgcmd "github.com/klwxsrx/go-throttle/pkg/cmd"
	"github.com/klwxsrx/go-throttle/pkg/event"
	"github.com/klwxsrx/go-throttle/pkg/log"
	"github.com/klwxsrx/go-throttle/pkg/throttle"
)

const removeOnInterruptTimeout = 5 * time.Second

type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return fmt.Sprintf("command exited with code %d", e.code)
}

func newRunCmd(load configLoader) *cobra.Command {
	var (
		queueID string
		rate    float64
	)

	cmd := &cobra.Command{
		Use:   "run --queue <id> [--rate <per minute>] -- <command> [args...]",
		Short: "Run a command once the queue admits it, exiting with its code",
		Long: `Runs the command once every process sharing the store has been admitted before it,
no more often than the queue rate. The process stays until its queue slot is released.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go func() {
				select {
				case <-pkgcmd.TermSignals():
					cancel()
				case <-ctx.Done():
				}
			}()

			config, err := load(cmd)
			if err != nil {
				return err
			}
			if err = config.Validate(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("rate") {
				var ok bool
				rate, ok = config.QueueRate(queueID)
				if !ok {
					return fmt.Errorf("%w: no rate for queue %q", commoncmd.ErrInvalidConfig, queueID)
				}
			}

			infra := commoncmd.NewInfrastructureContainer(ctx, config)
			logger := infra.Logger.MustLoad().WithField("queueID", queueID)
			defer pkgcmd.HandleAppPanic(ctx, logger)
			defer closeInfrastructure(ctx, infra)

			if config.Store.Kind == commoncmd.StoreKindMemory {
				logger.Warn(ctx, "memory store throttles this process only")
			}

			released := make(chan struct{}, 1)
			release := func(any) {
				select {
				case released <- struct{}{}:
				default:
				}
			}
			opts := append(infra.ThrottleOptions(),
				throttle.WithEventHandler(throttle.EventRemoved, release),
				throttle.WithEventHandler(event.Error, release),
			)

			store := infra.Store.MustLoad()
			result, err := throttle.Schedule(
				ctx,
				store,
				throttle.Config{QueueID: queueID, RatePerMinute: rate},
				commandWork(ctx, args),
				opts...,
			)
			if err != nil {
				return err
			}

			code, err := waitResult(ctx, store, queueID, result, logger)
			if err != nil {
				return err
			}

			logger.WithField("exitCode", code).Debug(ctx, "command completed, waiting for the queue slot release")
			select {
			case <-released:
			case <-ctx.Done():
			}

			if code != 0 {
				return exitCodeError{code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&queueID, "queue", "q", "", "queue id shared by the throttled processes")
	cmd.Flags().Float64VarP(&rate, "rate", "r", 0, "admissions per minute, the configured queue rate by default")
	_ = cmd.MarkFlagRequired("queue")

	return cmd
}

// waitResult waits for the command result.
// A task interrupted before it settles is removed from the queue, so it does not block the processes behind it.
func waitResult(ctx context.Context, store throttle.Store, queueID string, result *throttle.Result[int], logger log.Logger) (int, error) {
	code, err := result.Wait(ctx)
	if err == nil || ctx.Err() == nil {
		return code, err
	}
	select {
	case <-result.Done():
		return code, err
	default:
	}

	removeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), removeOnInterruptTimeout)
	defer cancel()
	if removeErr := store.RemoveItem(removeCtx, queueID, result.TaskID()); removeErr != nil {
		logger.WithError(removeErr).Warn(ctx, "failed to remove interrupted task from the queue")
	}
	return code, err
}

// commandWork runs args with the process stdio. The command is killed when ctx is canceled.
func commandWork(ctx context.Context, args []string) throttle.Work[int] {
	return func(context.Context) (int, error) {
		command := exec.CommandContext(ctx, args[0], args[1:]...)
		command.Stdin = os.Stdin
		command.Stdout = os.Stdout
		command.Stderr = os.Stderr

		err := command.Run()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		if err != nil {
			return 0, fmt.Errorf("run %s: %w", args[0], err)
		}
		return 0, nil
	}
}
