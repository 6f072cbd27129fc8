// Package netwait implements TCP readiness polling for dependent services.
// A caller blocks until the target accepts a connection, with one diagnostic
// line per failed attempt, mirroring the classic wait-for-it startup gate.
package netwait

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

// DefaultInterval is the pause between connection attempts.
const DefaultInterval = time.Second

// WaitTCP polls addr (host:port) until a TCP connection succeeds or ctx is
// cancelled. Each failed attempt writes a diagnostic line to w; success writes
// one final line. Without a ctx deadline the poll never gives up.
func WaitTCP(ctx context.Context, addr string, interval time.Duration, w io.Writer) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	d := net.Dialer{Timeout: interval}
	for attempt := 1; ; attempt++ {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			fmt.Fprintf(w, "%s is available\n", addr)
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("waiting for %s: %w", addr, ctx.Err())
		}

		fmt.Fprintf(w, "waiting for %s (attempt %d)\n", addr, attempt)

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", addr, ctx.Err())
		case <-time.After(interval):
		}
	}
}
