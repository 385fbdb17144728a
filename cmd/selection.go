package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/classwind/internal/host"
	"github.com/zjrosen/classwind/internal/report"
)

func newSortSelectionCmd(st *state) *cobra.Command {
	var (
		rangeFlag string
		diff      bool
	)
	cmd := &cobra.Command{
		Use:   "sort-selection FILE --range START:END",
		Short: "Sort the class lists inside a character range of a file",
		Long: `Sort the whitespace-separated class lists found between two character
offsets of FILE, ignoring the language rules. START and END count characters
from the start of the file; END is exclusive.

Example:
  classwind sort-selection index.html --range 12:40`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseRange(rangeFlag)
			if err != nil {
				return err
			}

			root, err := workspaceRoot()
			if err != nil {
				return err
			}
			errOut := cmd.ErrOrStderr()
			shot, err := newOneShot(cmd.Context(), st, root, cliNotifier{w: errOut, color: colorEnabled(errOut)})
			if err != nil {
				return err
			}
			defer shot.Close()

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}

			uri := "file://" + filepath.ToSlash(abs)
			buf := shot.hub.Open(uri, abs, host.LanguageForPath(abs), string(data))
			res, err := shot.svc.SortSelection(cmd.Context(), buf, sel)
			if err != nil {
				return err
			}
			if !res.Changed() {
				fmt.Fprintln(errOut, "already sorted")
				return nil
			}

			if diff {
				_, err = report.NewRenderer(colorEnabled(cmd.OutOrStdout())).Write(cmd.OutOrStdout(), path, string(data), buf.Text())
				return err
			}
			if err := writePreservingMode(path, buf.Text()); err != nil {
				return err
			}
			fmt.Fprintf(errOut, "sorted %d class lists, %d moved\n", res.Edits, len(res.Moved))
			return nil
		},
	}

	cmd.Flags().StringVarP(&rangeFlag, "range", "r", "", "character range START:END")
	cmd.Flags().BoolVar(&diff, "diff", false, "print the changes instead of writing them")
	_ = cmd.MarkFlagRequired("range")
	return cmd
}

// parseRange parses "START:END" into a character range.
func parseRange(s string) (host.Range, error) {
	startText, endText, ok := strings.Cut(s, ":")
	if !ok {
		return host.Range{}, fmt.Errorf("range %q: want START:END", s)
	}
	start, err := strconv.Atoi(strings.TrimSpace(startText))
	if err != nil {
		return host.Range{}, fmt.Errorf("range %q: bad start: %w", s, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(endText))
	if err != nil {
		return host.Range{}, fmt.Errorf("range %q: bad end: %w", s, err)
	}
	if start < 0 || end < start {
		return host.Range{}, errors.New("range must satisfy 0 <= START <= END")
	}
	return host.Range{Start: start, End: end}, nil
}
