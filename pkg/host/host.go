// Package host defines the narrow capability surface the core consumes from the machine it
// runs on: reading, writing and listing files, and spawning processes with streamed output.
package host

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// Command describes a process to spawn.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// String renders the command for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}

	return c.Name + " " + strings.Join(c.Args, " ")
}

// Process is a spawned command. Output must be drained until it is closed;
// stdout and stderr are merged into the same stream.
type Process interface {
	Output() <-chan []byte
	// Wait blocks until the process exits and returns its exit code. The error is
	// non-nil only when the process could not be waited on.
	Wait() (int, error)
}

// Host is the capability interface. Implementations must be safe for concurrent use.
type Host interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// WriteFile replaces the file content, creating parent directories as needed.
	WriteFile(ctx context.Context, path string, data []byte) error
	// ListDir returns the entry names of a directory in lexical order.
	ListDir(ctx context.Context, path string) ([]string, error)
	Spawn(ctx context.Context, cmd Command) (Process, error)
}

// Result is the collected outcome of a command run to completion.
type Result struct {
	Output   string
	ExitCode int
}

// Run spawns cmd, collects its merged output and waits for it to exit. A non-zero
// exit code is reported through Result, not as an error.
func Run(ctx context.Context, h Host, cmd Command) (Result, error) {
	proc, err := h.Spawn(ctx, cmd)
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("failed to spawn %s: %w", cmd.Name, err)
	}

	var out strings.Builder
	for chunk := range proc.Output() {
		out.Write(chunk)
	}

	code, err := proc.Wait()
	if err != nil {
		return Result{Output: out.String(), ExitCode: code}, fmt.Errorf("failed to wait for %s: %w", cmd.Name, err)
	}

	return Result{Output: out.String(), ExitCode: code}, nil
}

// Exists reports whether path can be read as a file or listed as a directory.
func Exists(ctx context.Context, h Host, path string) bool {
	if _, err := h.ListDir(ctx, path); err == nil {
		return true
	}

	_, err := h.ReadFile(ctx, path)

	return err == nil
}

// IsNotExist reports whether err indicates a missing file or directory.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
