package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvocation_Argv(t *testing.T) {
	inv := Invocation{Command: "rustywind", Args: []string{"--custom-regex", "x"}, Root: "/w"}
	require.Equal(t, []string{"--custom-regex", "x", "/w", "--write"}, inv.Argv())
	require.Equal(t, "rustywind --custom-regex x /w --write", inv.String())

	require.Equal(t, "rustywind /w --write", Invocation{Root: "/w"}.String())
}

func TestLines(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, Lines("a\r\n\n  b  \n"))
	require.Nil(t, Lines(""))
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestRealRunner_CollectsOutput(t *testing.T) {
	skipWithoutShell(t)
	root := t.TempDir()

	// sh -c SCRIPT ROOT --write: the root becomes $0 and the flag $1
	res, err := NewRealRunner().Run(context.Background(), Invocation{
		Command: "sh",
		Args:    []string{"-c", `echo "sorted $0 $1"; echo "warn: skipped" >&2`},
		Root:    root,
	}, Sink{})
	require.NoError(t, err)
	require.Equal(t, []string{"sorted " + root + " --write"}, res.Stdout)
	require.Equal(t, []string{"warn: skipped"}, res.Stderr)
	require.Zero(t, res.ExitCode)
}

func TestRealRunner_ExitStatus(t *testing.T) {
	skipWithoutShell(t)

	res, err := NewRealRunner().Run(context.Background(), Invocation{
		Command: "sh",
		Args:    []string{"-c", `echo "bad file" >&2; exit 3`},
		Root:    t.TempDir(),
	}, Sink{})
	require.ErrorIs(t, err, ErrToolFailed)
	require.Equal(t, 3, res.ExitCode)
	require.Equal(t, []string{"bad file"}, res.Stderr)
}

func TestRealRunner_MissingTool(t *testing.T) {
	_, err := NewRealRunner().Run(context.Background(), Invocation{
		Command: "classwind-no-such-tool",
		Root:    t.TempDir(),
	}, Sink{})
	require.True(t, errors.Is(err, ErrToolFailed))
}

func TestRealRunner_StreamsLines(t *testing.T) {
	skipWithoutShell(t)
	root := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// The second stderr line is only written once the first was delivered,
	// so a runner that reports after exit hits the timeout.
	script := `echo "a.html: parse error" >&2
while [ ! -f "$0/seen" ]; do sleep 0.01; done
echo "b.html: parse error" >&2
echo "sorted"`

	var out, errs []string
	res, err := NewRealRunner().Run(ctx, Invocation{Command: "sh", Args: []string{"-c", script}, Root: root}, Sink{
		Stdout: func(line string) { out = append(out, line) },
		Stderr: func(line string) {
			errs = append(errs, line)
			if len(errs) == 1 {
				assert.NoError(t, os.WriteFile(filepath.Join(root, "seen"), nil, 0o600))
			}
		},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"sorted"}, out)
	require.Equal(t, []string{"a.html: parse error", "b.html: parse error"}, errs)
	require.Equal(t, errs, res.Stderr, "Result keeps streamed lines too")
}
