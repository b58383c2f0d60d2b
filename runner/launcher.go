package runner

// This file contains local process execution for the simulation tool.

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"
)

// Launcher runs a command to completion.
type Launcher interface {
	// Launch blocks until the command exits and returns its exit code. An
	// error means the command could not be run at all.
	Launch(cmd Command, logger zerolog.Logger) (int, error)
}

// ExecLauncher runs commands as local processes, forwarding their console
// output to the debug log.
type ExecLauncher struct{}

func (ExecLauncher) Launch(cmd Command, logger zerolog.Logger) (int, error) {
	c := exec.Command(cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir

	out := &logWriter{logger: logger}
	c.Stdout = out
	c.Stderr = out

	err := c.Run()
	out.flush()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, fmt.Errorf("failed to execute %s: %w", cmd.Path, err)
	}
	return 0, nil
}

// logWriter logs every complete line written to it. exec.Cmd serialises
// writes when Stdout and Stderr share a writer.
type logWriter struct {
	logger zerolog.Logger
	buf    bytes.Buffer
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		idx := bytes.IndexByte(w.buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimRight(w.buf.Next(idx+1), "\r\n")
		w.logger.Debug().Str("output", string(line)).Msg("Tool output")
	}
	return len(p), nil
}

func (w *logWriter) flush() {
	if w.buf.Len() > 0 {
		w.logger.Debug().Str("output", w.buf.String()).Msg("Tool output")
		w.buf.Reset()
	}
}
