package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"

	"docupload/internal/netwait"
)

// waitfor blocks until host:port accepts TCP connections, then runs the
// remaining arguments as a child process and exits with the child's exit
// code. With no command it just waits and exits 0.
//
// Usage: waitfor [-port 9000] [-interval 1s] [-timeout 0] <host> [command...]
func main() {
	port := flag.Int("port", 9000, "port to wait for")
	interval := flag.Duration("interval", netwait.DefaultInterval, "pause between connection attempts")
	timeout := flag.Duration("timeout", 0, "give up after this duration (0 = wait forever)")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: waitfor [flags] <host> [command...]")
		os.Exit(2)
	}
	host := flag.Arg(0)
	args := flag.Args()[1:]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	waitCtx := ctx
	if *timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	addr := net.JoinHostPort(host, strconv.Itoa(*port))
	if err := netwait.WaitTCP(waitCtx, addr, *interval, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(args) == 0 {
		return
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "waitfor: %v\n", err)
		os.Exit(1)
	}

	// Relay termination signals to the child so it can shut down cleanly.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigCh:
				_ = cmd.Process.Signal(sig)
			case <-done:
				return
			}
		}
	}()

	err := cmd.Wait()
	close(done)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "waitfor: %v\n", err)
		os.Exit(1)
	}
}
