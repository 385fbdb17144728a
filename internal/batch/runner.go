// Package batch runs the external whole-project sorting tool.
package batch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// ErrToolFailed indicates the batch tool could not be started or exited with
// a failure status.
var ErrToolFailed = errors.New("batch tool failed")

// DefaultCommand is the tool run when none is configured.
const DefaultCommand = "rustywind"

// Invocation describes one run of the tool over a workspace root.
type Invocation struct {
	Command string
	Args    []string
	Root    string
}

// Argv returns the tool arguments: the configured arguments, the root and
// the write flag.
func (i Invocation) Argv() []string {
	argv := make([]string, 0, len(i.Args)+2)
	argv = append(argv, i.Args...)
	return append(argv, i.Root, "--write")
}

func (i Invocation) String() string {
	return strings.Join(append([]string{i.command()}, i.Argv()...), " ")
}

func (i Invocation) command() string {
	if i.Command == "" {
		return DefaultCommand
	}
	return i.Command
}

// Result holds the non-empty output lines of a run.
type Result struct {
	Stdout   []string
	Stderr   []string
	ExitCode int
}

// Sink receives output lines while the tool is still running. Nil fields
// are skipped. Callbacks for one stream are never called concurrently.
type Sink struct {
	Stdout func(line string)
	Stderr func(line string)
}

// Runner runs the batch tool. A failing run still returns whatever output
// was produced. Result always holds every line, including those already
// passed to the sink; a runner that cannot stream may ignore the sink.
type Runner interface {
	Run(ctx context.Context, inv Invocation, sink Sink) (Result, error)
}

// Compile-time check that RealRunner implements Runner.
var _ Runner = (*RealRunner)(nil)

// RealRunner executes the tool as a subprocess in the workspace root.
type RealRunner struct{}

func NewRealRunner() *RealRunner {
	return &RealRunner{}
}

func (r *RealRunner) Run(ctx context.Context, inv Invocation, sink Sink) (Result, error) {
	//nolint:gosec // G204: command comes from user configuration
	cmd := exec.CommandContext(ctx, inv.command(), inv.Argv()...)
	cmd.Dir = inv.Root

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%w: %s: %w", ErrToolFailed, inv.command(), err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%w: %s: %w", ErrToolFailed, inv.command(), err)
	}
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%w: %s: %w", ErrToolFailed, inv.command(), err)
	}

	var res Result
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.Stdout = scanLines(stdout, sink.Stdout)
	}()
	go func() {
		defer wg.Done()
		res.Stderr = scanLines(stderr, sink.Stderr)
	}()
	// Both pipes must be drained before Wait closes them.
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, fmt.Errorf("%w: %s exited with status %d", ErrToolFailed, inv.command(), res.ExitCode)
		}
		res.ExitCode = -1
		return res, fmt.Errorf("%w: %s: %w", ErrToolFailed, inv.command(), err)
	}
	return res, nil
}

func scanLines(r io.Reader, each func(string)) []string {
	var lines []string
	sc := newScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if each != nil {
			each(line)
		}
	}
	// Output past a read error is lost; keep what arrived and drain the rest
	// so the process is not blocked on a full pipe.
	_, _ = io.Copy(io.Discard, r)
	return lines
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return sc
}

// Lines splits output into trimmed, non-empty lines.
func Lines(s string) []string {
	return scanLines(strings.NewReader(s), nil)
}
