// Package hosttest provides an in-memory host.Host for deterministic tests.
package hosttest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/dukex/demodeck/pkg/host"
)

// Outcome scripts the result of a spawned command.
type Outcome struct {
	Chunks   []string
	ExitCode int
	// SpawnErr makes Spawn itself fail.
	SpawnErr error
	// Effect runs before the process output is delivered, e.g. to simulate files
	// written by the command.
	Effect func(h *Host)
}

// Handler decides the outcome of a spawned command.
type Handler func(cmd host.Command) Outcome

// Host is an in-memory filesystem plus a scripted process table.
type Host struct {
	mu      sync.Mutex
	files   map[string][]byte
	dirs    map[string]struct{}
	handler Handler
	calls   []host.Command

	// ReadErrs forces ReadFile on a path to fail with the given error.
	ReadErrs map[string]error
}

// New creates an empty fake host. Commands not handled by h exit with code 0.
func New(h Handler) *Host {
	return &Host{
		files:    make(map[string][]byte),
		dirs:     map[string]struct{}{"/": {}},
		handler:  h,
		ReadErrs: make(map[string]error),
	}
}

// SetHandler replaces the spawn handler.
func (h *Host) SetHandler(handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.handler = handler
}

// AddFile stores content at p, creating parent directories.
func (h *Host) AddFile(p string, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.putFile(path.Clean(p), []byte(content))
}

// AddDir creates directory p and its parents.
func (h *Host) AddDir(p string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.mkdirAll(path.Clean(p))
}

// File returns the content stored at p.
func (h *Host) File(p string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, ok := h.files[path.Clean(p)]

	return string(data), ok
}

// HasDir reports whether directory p exists.
func (h *Host) HasDir(p string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, ok := h.dirs[path.Clean(p)]

	return ok
}

// Calls returns the commands spawned so far.
func (h *Host) Calls() []host.Command {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]host.Command, len(h.calls))
	copy(out, h.calls)

	return out
}

// CommandLines returns the spawned commands rendered as strings.
func (h *Host) CommandLines() []string {
	calls := h.Calls()

	lines := make([]string, 0, len(calls))
	for _, c := range calls {
		lines = append(lines, c.String())
	}

	return lines
}

func (h *Host) ReadFile(_ context.Context, p string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p = path.Clean(p)
	if err, ok := h.ReadErrs[p]; ok {
		return nil, err
	}

	data, ok := h.files[p]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}

	out := make([]byte, len(data))
	copy(out, data)

	return out, nil
}

func (h *Host) WriteFile(_ context.Context, p string, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.putFile(path.Clean(p), data)

	return nil
}

func (h *Host) ListDir(_ context.Context, p string) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p = path.Clean(p)
	if _, ok := h.dirs[p]; !ok {
		return nil, &fs.PathError{Op: "readdir", Path: p, Err: fs.ErrNotExist}
	}

	seen := make(map[string]struct{})

	for candidate := range h.dirs {
		if name, ok := childName(p, candidate); ok {
			seen[name] = struct{}{}
		}
	}

	for candidate := range h.files {
		if name, ok := childName(p, candidate); ok {
			seen[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

// Spawn records the command and replays the scripted outcome. "mkdir -p" and
// "rm -rf" are applied to the in-memory filesystem before the handler runs.
func (h *Host) Spawn(_ context.Context, cmd host.Command) (host.Process, error) {
	h.mu.Lock()
	h.calls = append(h.calls, cmd)
	h.applyBuiltin(cmd)
	handler := h.handler
	h.mu.Unlock()

	outcome := Outcome{}
	if handler != nil {
		outcome = handler(cmd)
	}

	if outcome.SpawnErr != nil {
		return nil, outcome.SpawnErr
	}

	if outcome.Effect != nil {
		outcome.Effect(h)
	}

	proc := &process{output: make(chan []byte, len(outcome.Chunks)), code: outcome.ExitCode}
	for _, chunk := range outcome.Chunks {
		proc.output <- []byte(chunk)
	}

	close(proc.output)

	return proc, nil
}

func (h *Host) applyBuiltin(cmd host.Command) {
	if len(cmd.Args) < 2 {
		return
	}

	switch {
	case cmd.Name == "mkdir" && cmd.Args[0] == "-p":
		for _, target := range cmd.Args[1:] {
			h.mkdirAll(path.Clean(target))
		}
	case cmd.Name == "rm" && cmd.Args[0] == "-rf":
		for _, target := range cmd.Args[1:] {
			h.removeAll(path.Clean(target))
		}
	}
}

func (h *Host) putFile(p string, data []byte) {
	h.mkdirAll(path.Dir(p))

	stored := make([]byte, len(data))
	copy(stored, data)
	h.files[p] = stored
}

func (h *Host) mkdirAll(p string) {
	for {
		h.dirs[p] = struct{}{}
		if p == "/" || p == "." {
			return
		}

		p = path.Dir(p)
	}
}

func (h *Host) removeAll(p string) {
	prefix := strings.TrimSuffix(p, "/") + "/"

	for candidate := range h.files {
		if candidate == p || strings.HasPrefix(candidate, prefix) {
			delete(h.files, candidate)
		}
	}

	for candidate := range h.dirs {
		if candidate == p || strings.HasPrefix(candidate, prefix) {
			delete(h.dirs, candidate)
		}
	}
}

func childName(parent, candidate string) (string, bool) {
	if candidate == parent {
		return "", false
	}

	prefix := strings.TrimSuffix(parent, "/") + "/"
	if !strings.HasPrefix(candidate, prefix) {
		return "", false
	}

	rest := strings.TrimPrefix(candidate, prefix)
	name, _, _ := strings.Cut(rest, "/")

	return name, name != ""
}

type process struct {
	output chan []byte
	code   int
}

func (p *process) Output() <-chan []byte {
	return p.output
}

func (p *process) Wait() (int, error) {
	return p.code, nil
}

// Exit builds an outcome that prints output and exits with code.
func Exit(code int, output ...string) Outcome {
	return Outcome{Chunks: output, ExitCode: code}
}

// SpawnFailure builds an outcome whose spawn fails.
func SpawnFailure(msg string) Outcome {
	return Outcome{SpawnErr: errors.New(msg)}
}

// Match routes commands by the prefix of their rendered command line.
func Match(routes map[string]Outcome) Handler {
	return func(cmd host.Command) Outcome {
		line := cmd.String()

		best := ""
		for prefix := range routes {
			if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
				best = prefix
			}
		}

		if best == "" {
			return Outcome{}
		}

		return routes[best]
	}
}

var _ host.Host = (*Host)(nil)

// String renders a short description for debugging.
func (h *Host) String() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return fmt.Sprintf("hosttest.Host{files:%d dirs:%d calls:%d}", len(h.files), len(h.dirs), len(h.calls))
}
