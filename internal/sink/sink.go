// Package sink delivers finished device configurations. A sink is keyed by
// device display name and never sees partial output.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileExt is appended to the device name to form file and object names.
const FileExt = ".cfg"

var ErrBadDeviceName = errors.New("device name cannot be used as a file name")

// Sink receives one configuration text per device.
type Sink interface {
	Write(ctx context.Context, device, text string) error
}

// FileName returns the file name a device's configuration is stored under.
func FileName(device string) (string, error) {
	if device == "" || device == "." || device == ".." || strings.ContainsAny(device, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrBadDeviceName, device)
	}
	return device + FileExt, nil
}

// DirSink writes <dir>/<device>.cfg, creating dir on first use.
type DirSink struct {
	Dir string

	once     sync.Once
	mkdirErr error
}

// NewDirSink returns a sink rooted at dir.
func NewDirSink(dir string) *DirSink { return &DirSink{Dir: dir} }

// Path returns where the configuration of device is written.
func (s *DirSink) Path(device string) (string, error) {
	name, err := FileName(device)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, name), nil
}

func (s *DirSink) Write(ctx context.Context, device, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.once.Do(func() {
		s.mkdirErr = os.MkdirAll(s.Dir, 0o755)
	})
	if s.mkdirErr != nil {
		return fmt.Errorf("create output dir %s: %w", s.Dir, s.mkdirErr)
	}
	path, err := s.Path(device)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriterSink concatenates configurations on one writer, each preceded by a
// separator line naming the device.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink wraps w; writes are serialised.
func NewWriterSink(w io.Writer) *WriterSink { return &WriterSink{w: w} }

func (s *WriterSink) Write(ctx context.Context, device, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "!==== %s%s ====\n%s", device, FileExt, text); err != nil {
		return fmt.Errorf("write %s: %w", device, err)
	}
	return nil
}
