package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"docupload/internal/batch"
)

// uploader posts every file of a directory to the upload endpoint, one at a
// time at a fixed rate. Individual upload failures are reported in the output
// only; exit code 1 means the directory could not be read.
func main() {
	dir := flag.String("dir", "files_to_upload", "directory with files to upload")
	url := flag.String("url", "http://localhost:3000/upload/", "upload endpoint")
	field := flag.String("field", "file", "multipart form field name")
	rps := flag.Float64("rate", 1.0, "uploads per second")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	u := batch.New(*url, *field, *rps, os.Stdout)
	if _, err := u.Run(ctx, *dir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
