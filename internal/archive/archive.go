// Package archive keeps a copy of every raw SBS line in daily files.
// A day's file is gzipped once a line from a later day arrives.
package archive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/saviobatista/sbs-viewer/internal/logger"
)

const dayLayout = "2006-01-02"

// Archive appends raw lines to sbs_YYYY-MM-DD.log in dir
type Archive struct {
	dir string
	log zerolog.Logger

	mu   sync.Mutex
	day  string
	file *os.File
	buf  *bufio.Writer
}

// New creates the archive directory if needed
func New(dir string) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &Archive{dir: dir, log: logger.WithComponent("archive")}, nil
}

// FileName returns the uncompressed file name for the UTC day of t
func FileName(t time.Time) string {
	return fmt.Sprintf("sbs_%s.log", t.UTC().Format(dayLayout))
}

// Write appends line to the file of the day at ts
func (a *Archive) Write(line string, ts time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	day := ts.UTC().Format(dayLayout)
	if a.file == nil || day > a.day {
		if err := a.rotate(ts); err != nil {
			return err
		}
	}

	if _, err := a.buf.WriteString(line); err != nil {
		return fmt.Errorf("failed to write line: %w", err)
	}
	return a.buf.WriteByte('\n')
}

// Flush writes buffered lines to disk
func (a *Archive) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.buf == nil {
		return nil
	}
	return a.buf.Flush()
}

// Close flushes and closes the current file. The current day stays
// uncompressed so a restart can keep appending to it.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeFile()
}

func (a *Archive) closeFile() error {
	if a.file == nil {
		return nil
	}
	err := a.buf.Flush()
	if cerr := a.file.Close(); err == nil {
		err = cerr
	}
	a.file, a.buf = nil, nil
	return err
}

// rotate closes the current day, compresses it and opens the day of ts
func (a *Archive) rotate(ts time.Time) error {
	prev := a.day
	if err := a.closeFile(); err != nil {
		return fmt.Errorf("failed to close archive file: %w", err)
	}
	if prev != "" {
		path := filepath.Join(a.dir, "sbs_"+prev+".log")
		if err := compress(path); err != nil {
			a.log.Error().Err(err).Str("file", path).Msg("Failed to compress archive")
		} else {
			a.log.Info().Str("file", path+".gz").Msg("Archive compressed")
		}
	}

	path := filepath.Join(a.dir, FileName(ts))
	//nolint:gosec // path is built from the configured directory
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open archive file: %w", err)
	}
	a.file = f
	a.buf = bufio.NewWriter(f)
	a.day = ts.UTC().Format(dayLayout)
	return nil
}

// compress gzips path into path.gz and removes path
func compress(path string) error {
	//nolint:gosec // path is built from the configured directory
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}

	zw := gzip.NewWriter(dst)
	zw.Name = filepath.Base(path)
	if _, err := io.Copy(zw, src); err != nil {
		dst.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}
