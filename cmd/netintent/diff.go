package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/netintent/internal/compiler"
	"github.com/signalsfoundry/netintent/internal/sink"
)

// errDifferences makes the process exit 1 without printing an error.
var errDifferences = errors.New("configurations differ")

func newDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Compare a fresh compilation with the configurations on disk",
		Long: `'diff' compiles the intent and compares every router's configuration with
<output-dir>/<router>.cfg. Files the compilation would no longer produce are
reported as stale. The exit status is 1 when anything differs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			res, err := a.compile(ctx)
			if err != nil {
				return err
			}
			changed, err := writeDiff(a.stdout, a.cfg.OutputDir, res, !a.cfg.NoColor)
			if err != nil {
				return err
			}
			if changed > 0 {
				return errDifferences
			}
			fmt.Fprintln(a.stdout, "no differences")
			return nil
		},
	}
}

// writeDiff prints a line diff per changed router and returns how many files
// differ, are missing, or are stale.
func writeDiff(w io.Writer, dir string, res *compiler.Result, colored bool) (int, error) {
	var (
		header = color.New(color.Bold)
		added  = color.New(color.FgGreen)
		gone   = color.New(color.FgRed)
	)
	if !colored {
		header.DisableColor()
		added.DisableColor()
		gone.DisableColor()
	}

	ds := sink.NewDirSink(dir)
	dmp := diffmatchpatch.New()
	produced := make(map[string]struct{}, len(res.Configs))
	changed := 0

	for _, c := range res.Configs {
		path, err := ds.Path(c.Name)
		if err != nil {
			return changed, err
		}
		produced[filepath.Base(path)] = struct{}{}

		old, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			old = nil
		case err != nil:
			return changed, fmt.Errorf("read %s: %w", path, err)
		}
		if string(old) == c.Text {
			continue
		}
		changed++

		if old == nil {
			header.Fprintf(w, "+++ %s (new)\n", path)
		} else {
			header.Fprintf(w, "--- %s\n", path)
			header.Fprintf(w, "+++ %s (compiled)\n", c.Name)
		}
		a, b, lines := dmp.DiffLinesToChars(string(old), c.Text)
		diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
		for _, d := range diffs {
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				printLines(w, added, "+", d.Text)
			case diffmatchpatch.DiffDelete:
				printLines(w, gone, "-", d.Text)
			}
		}
	}

	stale, err := staleFiles(dir, produced)
	if err != nil {
		return changed, err
	}
	for _, name := range stale {
		gone.Fprintf(w, "--- %s (stale)\n", filepath.Join(dir, name))
		changed++
	}
	return changed, nil
}

func printLines(w io.Writer, c *color.Color, mark, text string) {
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		c.Fprint(w, mark+strings.TrimSuffix(line, "\n")+"\n")
	}
}

// staleFiles lists *.cfg files in dir that the compilation did not produce.
// A missing dir has none.
func staleFiles(dir string, produced map[string]struct{}) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != sink.FileExt {
			continue
		}
		if _, ok := produced[e.Name()]; !ok {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
