package logger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/lumberjack"

	coreconfig "github.com/m3rciful/rentbot/core/config"
)

// Log file rotation defaults applied when the config leaves them at zero.
const (
	defaultMaxSizeMB  = 20
	defaultMaxBackups = 5
	defaultMaxAgeDays = 30

	writerBufSize = 64 * 1024
	queueSize     = 256
)

// sink is one destination of the log stream. Only sinks the logger opened
// itself carry a closer; stdout is never closed.
type sink struct {
	name   string
	buf    *bufio.Writer
	closer io.Closer
}

func newSink(name string, w io.Writer, closer io.Closer) sink {
	return sink{name: name, buf: bufio.NewWriterSize(w, writerBufSize), closer: closer}
}

// openSinks returns stdout plus the rotated bot file when one is configured.
func openSinks(cfg *coreconfig.Config) []sink {
	sinks := []sink{newSink("stdout", os.Stdout, nil)}
	if cfg == nil {
		return sinks
	}
	if f := openRotating(cfg.Logging, cfg.Logging.BotFile); f != nil {
		sinks = append(sinks, newSink(filepath.Base(f.Filename), f, f))
	}
	return sinks
}

// openRotating returns a size-rotated file or nil when the file is not configured.
func openRotating(lc coreconfig.LoggingConfig, file string) *lumberjack.Logger {
	dir := strings.TrimSpace(lc.Dir)
	file = strings.TrimSpace(file)
	if dir == "" || file == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: failed to create log dir %s: %v", dir, err)
		return nil
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, file),
		MaxSize:    positiveOr(lc.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: positiveOr(lc.MaxBackups, defaultMaxBackups),
		MaxAge:     positiveOr(lc.MaxAgeDays, defaultMaxAgeDays),
		Compress:   lc.Compress,
	}
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// asyncWriter fans records out to every sink from a single goroutine, so
// handlers never block on disk rotation.
type asyncWriter struct {
	queue    chan []byte
	flushReq chan chan error
	done     chan struct{}
	once     sync.Once

	mu       sync.Mutex
	sinks    []sink
	writeErr error
}

func newAsyncWriter(sinks []sink) *asyncWriter {
	w := &asyncWriter{
		queue:    make(chan []byte, queueSize),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
		sinks:    sinks,
	}
	go w.loop()
	return w
}

func (w *asyncWriter) loop() {
	for {
		select {
		case data, ok := <-w.queue:
			if !ok {
				w.flushAll()
				close(w.done)
				return
			}
			w.writeAll(data)
		case ack := <-w.flushReq:
			ack <- w.flushAll()
		}
	}
}

// Write copies p and queues it. A full queue blocks the caller rather than
// dropping the record.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.err(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.queue <- append([]byte(nil), p...)
	return nil
}

// Flush waits until queued records reach the sinks.
func (w *asyncWriter) Flush() error {
	if err := w.err(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	w.flushReq <- ack
	return <-ack
}

// Close drains the queue, then closes the files the logger opened.
func (w *asyncWriter) Close() error {
	w.once.Do(func() {
		close(w.queue)
	})
	<-w.done

	w.mu.Lock()
	defer w.mu.Unlock()
	errs := []error{w.writeErr}
	for _, s := range w.sinks {
		if s.closer == nil {
			continue
		}
		if err := s.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("logger: close %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// writeAll keeps writing to the remaining sinks when one fails; the first
// failure is kept and reported by later calls.
func (w *asyncWriter) writeAll(p []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.sinks {
		if _, err := s.buf.Write(p); err != nil {
			w.keep(fmt.Errorf("logger: write %s: %w", s.name, err))
			continue
		}
		if err := s.buf.Flush(); err != nil {
			w.keep(fmt.Errorf("logger: flush %s: %w", s.name, err))
		}
	}
}

func (w *asyncWriter) flushAll() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, s := range w.sinks {
		if err := s.buf.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("logger: flush %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeErr
}

// keep records the first write failure. Callers hold mu.
func (w *asyncWriter) keep(err error) {
	if w.writeErr == nil {
		w.writeErr = err
	}
}
