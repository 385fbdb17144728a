package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/zjrosen/classwind/internal/host"
	"github.com/zjrosen/classwind/internal/log"
	"github.com/zjrosen/classwind/internal/report"
	"github.com/zjrosen/classwind/internal/sorter"
)

// errUnsorted makes `sort --check` exit non-zero without printing an error.
var errUnsorted = errors.New("some files are not sorted")

// skipDirs are never descended into when a directory is given.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
}

type sortOptions struct {
	check    bool
	diff     bool
	stdin    bool
	language string
}

func newSortCmd(st *state) *cobra.Command {
	opts := &sortOptions{}
	cmd := &cobra.Command{
		Use:   "sort [files or directories...]",
		Short: "Sort the class lists of files in place",
		Long: `Sort every class list the language rules find in the given files and
write the result back. Directories are walked for files of known languages.

With --check nothing is written and the command fails when a file would
change; --diff prints a word diff of each change instead of writing.

Examples:
  classwind sort index.html src/
  classwind sort --check --diff src/
  cat card.vue | classwind sort --stdin --language vue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(cmd, st, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.check, "check", false, "fail if any file is not sorted; write nothing")
	cmd.Flags().BoolVar(&opts.diff, "diff", false, "print the changes instead of writing them")
	cmd.Flags().BoolVar(&opts.stdin, "stdin", false, "sort standard input and print the result")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "language id to use instead of guessing from the file name")
	return cmd
}

func runSort(cmd *cobra.Command, st *state, opts *sortOptions, args []string) error {
	ctx := cmd.Context()
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	root, err := workspaceRoot()
	if err != nil {
		return err
	}
	shot, err := newOneShot(ctx, st, root, cliNotifier{w: errOut, color: colorEnabled(errOut)})
	if err != nil {
		return err
	}
	defer shot.Close()

	renderer := report.NewRenderer(colorEnabled(out))

	if opts.stdin {
		return sortStdin(ctx, cmd.InOrStdin(), out, shot, st, opts, renderer, root, args)
	}
	if len(args) == 0 {
		return errors.New("no files given (use --stdin to read standard input)")
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	var changed, failed int
	for _, path := range files {
		before, after, err := shot.sortFile(ctx, path, opts.language)
		if err != nil {
			if errors.Is(err, sorter.ErrConfigMissing) {
				// The notice has been printed, or was suppressed on purpose.
				if !st.cfg.IgnoreMissingConfig {
					failed++
				}
				continue
			}
			failed++
			log.ErrorErr(log.CatSort, "Sorting file failed", err, "path", path)
			fmt.Fprintf(errOut, "%s: %v\n", path, err)
			continue
		}
		if before == after {
			continue
		}
		changed++

		switch {
		case opts.diff:
			if _, err := renderer.Write(out, path, before, after); err != nil {
				return err
			}
		case opts.check:
			fmt.Fprintln(out, path)
		default:
			if err := writePreservingMode(path, after); err != nil {
				return err
			}
		}
	}

	if !opts.check && !opts.diff {
		fmt.Fprintf(errOut, "sorted %d of %d files\n", changed, len(files))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be sorted", failed, len(files))
	}
	if opts.check && changed > 0 {
		return errUnsorted
	}
	return nil
}

// sortStdin sorts standard input. An optional argument names the file the
// text belongs to, for the ranking lookup and the language guess.
func sortStdin(ctx context.Context, in io.Reader, out io.Writer, shot *oneShot, st *state, opts *sortOptions, renderer *report.Renderer, root string, args []string) error {
	if len(args) > 1 {
		return errors.New("--stdin takes at most one file name")
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading standard input: %w", err)
	}

	path := filepath.Join(root, "stdin")
	if len(args) == 1 {
		if path, err = filepath.Abs(args[0]); err != nil {
			return err
		}
	}
	lang := opts.language
	if lang == "" {
		if lang = host.LanguageForPath(path); lang == "plaintext" {
			lang = "html"
		}
	}

	before := string(data)
	after, err := shot.sortText(ctx, path, lang, before)
	if err != nil {
		if errors.Is(err, sorter.ErrConfigMissing) && st.cfg.IgnoreMissingConfig {
			after = before
		} else {
			return err
		}
	}

	switch {
	case opts.diff:
		_, err = renderer.Write(out, displayName(args), before, after)
		if err != nil {
			return err
		}
	case opts.check:
	default:
		_, err = io.WriteString(out, after)
		if err != nil {
			return err
		}
	}
	if opts.check && before != after {
		return errUnsorted
	}
	return nil
}

func displayName(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return "<stdin>"
}

func (o *oneShot) sortFile(ctx context.Context, path, language string) (before, after string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", err
	}
	lang := language
	if lang == "" {
		lang = host.LanguageForPath(abs)
	}
	after, err = o.sortText(ctx, abs, lang, string(data))
	return string(data), after, err
}

func (o *oneShot) sortText(ctx context.Context, absPath, lang, text string) (string, error) {
	uri := "file://" + filepath.ToSlash(absPath)
	buf := o.hub.Open(uri, absPath, lang, text)
	defer o.hub.Close(uri)

	if _, err := o.svc.SortDocument(ctx, buf); err != nil {
		return text, err
	}
	return buf.Text(), nil
}

// collectFiles expands directories into the files of known languages under
// them. Explicit files are always kept.
func collectFiles(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(arg)
			continue
		}

		err = filepath.WalkDir(arg, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != arg && (strings.HasPrefix(d.Name(), ".") || skipDirs[d.Name()]) {
					return filepath.SkipDir
				}
				return nil
			}
			if host.LanguageForPath(p) != "plaintext" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}
	return files, nil
}

func writePreservingMode(path, text string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, []byte(text), mode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// colorEnabled reports whether w is a terminal that takes colors.
func colorEnabled(w io.Writer) bool {
	return termenv.NewOutput(w).ColorProfile() != termenv.Ascii
}
