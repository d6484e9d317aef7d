package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileSystemError reports a failed create or append on the output file.
type FileSystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error { return e.Err }

// Sink is an append-only transcript file. Every append is flushed to disk
// before returning and echoed to Echo for the operator.
type Sink struct {
	Path   string
	Echo   io.Writer
	Logger *logrus.Logger
}

// Create truncates (or creates) the file and writes the header, echoing it
// like any other append.
func (s *Sink) Create(header string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return &FileSystemError{Op: "create dir", Path: filepath.Dir(s.Path), Err: err}
	}
	if err := os.WriteFile(s.Path, []byte(header), 0o644); err != nil {
		return &FileSystemError{Op: "create", Path: s.Path, Err: err}
	}
	if s.Echo != nil {
		_, _ = io.WriteString(s.Echo, header)
	}
	return nil
}

// Append writes b at the end of the file.
func (s *Sink) Append(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	// A failing mkdir is only logged; OpenFile below reports the real error.
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		s.Logger.Warnf("create output dir: %v", err)
	}
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &FileSystemError{Op: "open", Path: s.Path, Err: err}
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return &FileSystemError{Op: "append", Path: s.Path, Err: err}
	}
	if err := f.Sync(); err != nil {
		s.Logger.Warnf("sync %s: %v", s.Path, err)
	}
	if err := f.Close(); err != nil {
		return &FileSystemError{Op: "close", Path: s.Path, Err: err}
	}
	if s.Echo != nil {
		_, _ = s.Echo.Write(b)
	}
	return nil
}
