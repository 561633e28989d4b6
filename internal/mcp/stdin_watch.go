package mcp

import (
	"context"
	"os"
	"time"

	"conjugate/internal/logging"
)

// WatchParent cancels the server once the parent process goes away, so a
// client that exits without closing stdio does not leave the server behind.
// It must not read stdin: the stdio transport owns it.
func WatchParent(ctx context.Context, interval time.Duration, cancel context.CancelFunc) {
	ppid := os.Getppid()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
				if os.Getppid() != ppid {
					logging.New("mcp").Warn("parent process exited, shutting down", "ppid", ppid)
					cancel()
					return
				}
			}
		}
	}()
}
