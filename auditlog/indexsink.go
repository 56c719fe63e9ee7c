package auditlog

import (
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"ibaudit/logformat"
	"ibaudit/waf"

	"github.com/rs/zerolog"
)

// pipeShell runs piped index commands.
const pipeShell = "/bin/sh"

// IndexSink is the shared index destination of one configuration context:
// an append-only file or the stdin of a subprocess, receiving one line per
// committed audit record. The underlying handle is opened lazily on first
// append and survives across records. All handle state is guarded by the
// mutex; there is no unlocked fast path.
type IndexSink struct {
	logger zerolog.Logger
	fs     FileSystem
	cfg    *waf.AuditConfig
	format *logformat.Format

	// startPipe spawns the subprocess for a piped index and returns the
	// write end of its stdin. Replaceable in tests.
	startPipe func(command string) (io.WriteCloser, error)

	mu sync.Mutex
	w  io.WriteCloser
}

// NewIndexSink creates the index sink for a configuration context. The
// index line format is parsed eagerly so a bad format fails configuration,
// not the first transaction.
func NewIndexSink(logger zerolog.Logger, fs FileSystem, cfg *waf.AuditConfig) (*IndexSink, error) {
	formatStr := cfg.IndexFormat
	if formatStr == "" {
		formatStr = logformat.DefaultFormat
	}
	format, err := logformat.Parse(formatStr)
	if err != nil {
		return nil, err
	}

	return &IndexSink{
		logger:    logger,
		fs:        fs,
		cfg:       cfg,
		format:    format,
		startPipe: startShellPipe,
	}, nil
}

// Enabled reports whether an index destination is configured.
func (s *IndexSink) Enabled() bool {
	return s.cfg.Index != ""
}

// Append renders and writes one newline-terminated index line. The sink is
// opened lazily under the lock. An open failure is returned; a write
// failure is logged and the handle discarded so the next append reopens
// it, but is not propagated to the caller.
func (s *IndexSink) Append(e logformat.Entry) error {
	if !s.Enabled() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w == nil {
		if err := s.openLocked(); err != nil {
			return err
		}
	}

	line := s.format.Render(e)
	if _, err := io.WriteString(s.w, line+"\n"); err != nil {
		s.logger.Error().Err(err).Msg("Could not write to audit log index")
		s.w.Close()
		s.w = nil
	}
	return nil
}

// Close releases the sink handle. A later append reopens it.
func (s *IndexSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	return err
}

func (s *IndexSink) openLocked() error {
	spec := s.cfg.Index

	switch {
	case strings.HasPrefix(spec, "|"):
		command := strings.TrimSpace(spec[1:])
		w, err := s.startPipe(command)
		if err != nil {
			return fmt.Errorf("could not open piped audit log index %q: %v", command, err)
		}
		s.w = w
		s.logger.Info().Str("command", command).Msg("Opened piped audit log index")
	case strings.HasPrefix(spec, "/"):
		w, err := s.fs.OpenAppend(spec, s.cfg.FileMode)
		if err != nil {
			return fmt.Errorf("could not open audit log index %q: %v", spec, err)
		}
		s.w = w
		s.logger.Info().Str("file", spec).Msg("Opened audit log index")
	default:
		if err := s.fs.MkDirAll(s.cfg.BaseDir, s.cfg.DirMode); err != nil {
			return fmt.Errorf("could not create audit log dir %q: %v", s.cfg.BaseDir, err)
		}
		path := filepath.Join(s.cfg.BaseDir, spec)
		w, err := s.fs.OpenAppend(path, s.cfg.FileMode)
		if err != nil {
			return fmt.Errorf("could not open audit log index %q: %v", path, err)
		}
		s.w = w
		s.logger.Info().Str("file", path).Msg("Opened audit log index")
	}

	return nil
}

// startShellPipe forks the index command via the shell with its stdin
// wired to the returned pipe. The child is reaped in the background once
// it exits.
func startShellPipe(command string) (io.WriteCloser, error) {
	cmd := exec.Command(pipeShell, "-c", command)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, err
	}
	go cmd.Wait()
	return stdin, nil
}
