package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

const outputChunkSize = 4096

// Local implements Host on the local filesystem and os/exec.
type Local struct{}

// NewLocal creates a host backed by the local machine.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) ReadFile(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path) // #nosec G304 -- paths are built by the layout package
}

func (l *Local) WriteFile(_ context.Context, path string, data []byte) error {
	dir := filepath.Dir(path)

	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

func (l *Local) ListDir(_ context.Context, path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	return names, nil
}

// Spawn starts the command. The process is bound to ctx; callers that need the process
// to outlive the caller pass a context without cancellation.
func (l *Local) Spawn(ctx context.Context, cmd Command) (Process, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...) // #nosec G204 -- command templates are operator controlled
	c.Dir = cmd.Dir

	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	reader, writer := io.Pipe()
	c.Stdout = writer
	c.Stderr = writer

	err := c.Start()
	if err != nil {
		_ = writer.Close()

		return nil, err
	}

	proc := &localProcess{
		output: make(chan []byte, 64),
		done:   make(chan struct{}),
	}

	go proc.pump(reader)
	go func() {
		proc.waitErr = c.Wait()
		_ = writer.Close()

		close(proc.done)
	}()

	return proc, nil
}

type localProcess struct {
	output  chan []byte
	done    chan struct{}
	waitErr error
}

func (p *localProcess) pump(reader io.Reader) {
	defer close(p.output)

	buf := make([]byte, outputChunkSize)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.output <- chunk
		}

		if err != nil {
			return
		}
	}
}

func (p *localProcess) Output() <-chan []byte {
	return p.output
}

func (p *localProcess) Wait() (int, error) {
	<-p.done

	if p.waitErr == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(p.waitErr, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	return -1, p.waitErr
}
