// Package batch implements sequential multipart uploads of a local directory
// to the document service, paced at a fixed request rate.
package batch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

// Uploader posts every regular file of a directory to a single endpoint.
// Files are sent strictly one at a time; a failed upload is reported and
// counted but never stops the remaining files.
type Uploader struct {
	Client  *http.Client
	URL     string
	Field   string
	Limiter *rate.Limiter
	Out     io.Writer
}

// Report summarizes one Run.
type Report struct {
	Attempted int
	Succeeded int
	Failed    int
}

// New builds an Uploader posting to url under the given multipart field name,
// pacing requests at rps requests per second (1.0 means one upload per second).
func New(url, field string, rps float64, out io.Writer) *Uploader {
	return &Uploader{
		Client:  &http.Client{Timeout: 60 * time.Second},
		URL:     url,
		Field:   field,
		Limiter: rate.NewLimiter(rate.Limit(rps), 1),
		Out:     out,
	}
}

// Run enumerates regular files directly inside dir (no recursion) in
// directory-listing order and uploads each one. The returned error is non-nil
// only when the directory itself cannot be read.
func (u *Uploader) Run(ctx context.Context, dir string) (Report, error) {
	var rep Report

	entries, err := os.ReadDir(dir)
	if err != nil {
		return rep, fmt.Errorf("read dir %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}

		if err := u.Limiter.Wait(ctx); err != nil {
			return rep, err
		}

		rep.Attempted++
		path := filepath.Join(dir, e.Name())
		fmt.Fprintf(u.Out, "uploading %s\n", e.Name())

		status, err := u.uploadFile(ctx, path, e.Name())
		if err != nil {
			rep.Failed++
			fmt.Fprintf(u.Out, "failed %s: %v\n", e.Name(), err)
			continue
		}
		if status < 200 || status > 299 {
			rep.Failed++
			fmt.Fprintf(u.Out, "failed %s: server returned %d\n", e.Name(), status)
			continue
		}
		rep.Succeeded++
		fmt.Fprintf(u.Out, "done %s (%d)\n", e.Name(), status)
	}

	fmt.Fprintf(u.Out, "uploaded %d/%d files (%d failed)\n", rep.Succeeded, rep.Attempted, rep.Failed)
	return rep, nil
}

// uploadFile sends one multipart POST. The body is assembled in memory so the
// request carries a Content-Length header; the server rejects uploads of
// unknown length.
func (u *Uploader) uploadFile(ctx context.Context, path, name string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(u.Field, name)
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return 0, err
	}
	if err := mw.Close(); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.URL, &body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.ContentLength = int64(body.Len())

	resp, err := u.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
