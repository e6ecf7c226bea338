// Package transfer downloads device files concurrently and streams each one
// back to the caller the moment its bytes are on disk.
package transfer

import (
	"context"
	"iter"
	"os"
	"path"
	"path/filepath"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/sigpull/sigpull/internal/device"
)

type result struct {
	file device.FileResource
	err  error
}

// DownloadAll fetches every file in files to outputDir, one concurrent
// request per file, and returns a sequence of the records in the order their
// downloads complete. Iterating the sequence drives the work.
//
// The output directory is created if absent. Every record is launched
// immediately; there is no batching or throttling, and the only bound on a
// stuck request is the client's own timeout. The first failed fetch or write
// is yielded with a non-nil error and ends the sequence; remaining transfers
// are not isolated or retried. A caller that stops iterating early lets the
// outstanding downloads run to completion and discards their results.
//
// Files are written to outputDir/<basename of DownloadPath>. Records whose
// paths share a basename overwrite each other; the last completed download
// wins.
func DownloadAll(ctx context.Context, client *resty.Client, baseURL, token string, files []device.FileResource, outputDir string) iter.Seq2[device.FileResource, error] {
	return func(yield func(device.FileResource, error) bool) {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			yield(device.FileResource{}, errors.Wrap(err, "create output directory"))
			return
		}

		batch := uuid.NewString()
		// Buffered to len(files) so workers never block on an abandoned
		// consumer.
		completed := make(chan result, len(files))
		for _, f := range files {
			go func(f device.FileResource) {
				completed <- result{file: f, err: fetch(ctx, client, baseURL, token, f, outputDir, batch)}
			}(f)
		}

		for range files {
			r := <-completed
			if r.err != nil {
				yield(r.file, r.err)
				return
			}
			if !yield(r.file, nil) {
				return
			}
		}
	}
}

// ForSession is DownloadAll bound to a session's client, base URL and token.
func ForSession(ctx context.Context, s *device.Session, files []device.FileResource, outputDir string) iter.Seq2[device.FileResource, error] {
	return DownloadAll(ctx, s.Client(), s.BaseURL(), s.Token(), files, outputDir)
}

// fetch pulls one file off the device and writes it under outputDir, named by
// the basename of its download path.
func fetch(ctx context.Context, client *resty.Client, baseURL, token string, f device.FileResource, outputDir, batch string) error {
	resp, err := client.R().
		SetContext(ctx).
		Get(device.BuildURL(baseURL, f.DownloadPath, token))
	if err != nil {
		return errors.Wrapf(err, "download %s", f.DownloadPath)
	}
	if resp.IsError() {
		return errors.Errorf("download %s: status %d", f.DownloadPath, resp.StatusCode())
	}

	local := filepath.Join(outputDir, path.Base(f.DownloadPath))
	if err := os.WriteFile(local, resp.Body(), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", local)
	}

	log.WithFields(log.Fields{
		"batch": batch,
		"id":    f.ID,
		"path":  local,
		"size":  len(resp.Body()),
	}).Debug("file downloaded")
	return nil
}
