// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"

	"github.com/matt-FFFFFF/m8batch/internal/ctxlog"
)

// Watch monitors the signal channel until ctx is done or the channel is closed.
// The first signal of a given type calls onFirst, which may be nil.
// The second signal of the same type calls cancel and returns.
func Watch(ctx context.Context, sigCh <-chan os.Signal, onFirst func(), cancel context.CancelFunc) {
	seen := make(map[os.Signal]struct{})

	for {
		var (
			sig os.Signal
			ok  bool
		)

		select {
		case <-ctx.Done():
			return
		case sig, ok = <-sigCh:
			if !ok {
				return
			}
		}

		if _, dup := seen[sig]; dup {
			ctxlog.Warn(ctx, "received second signal, terminating", "signal", sig.String())
			cancel()

			return
		}

		seen[sig] = struct{}{}

		ctxlog.Warn(ctx, "received signal, cancelling batch (repeat to terminate)", "signal", sig.String())

		if onFirst != nil {
			onFirst()
		}
	}
}
