package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"weft/internal/diag"
	"weft/internal/diagfmt"
	"weft/internal/driver"
	"weft/internal/observ"
	"weft/internal/prof"
	"weft/internal/source"
	"weft/internal/ui"
	"weft/internal/version"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <file.weft|directory>",
	Short: "Check templates for syntax, type, and schema issues",
	Long:  `Check runs the full pipeline over one template, or over every *.weft file under a directory, and reports diagnostics in the chosen format`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|short|json|sarif)")
	checkCmd.Flags().String("schema", "", "schema file overriding discovery")
	checkCmd.Flags().String("host-format", "", "host format override for projection (json|yaml|html|xml|toml|markdown|text)")
	checkCmd.Flags().Bool("delegate", false, "run the configured host-format linter over the projection")
	checkCmd.Flags().Bool("no-warnings", false, "ignore warnings in diagnostics")
	checkCmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
	checkCmd.Flags().Int("jobs", 0, "max parallel workers for directory processing (0=auto)")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("suggest", false, "include fix suggestions in output")
	checkCmd.Flags().Bool("preview", false, "show fixed lines next to each suggestion")
	checkCmd.Flags().String("paths", "auto", "path rendering in output (auto|absolute|relative|basename)")
	checkCmd.Flags().String("ui", "auto", "progress display for directories (auto|on|off)")
	checkCmd.Flags().String("cpuprofile", "", "write a CPU profile to the given file")
	checkCmd.Flags().String("memprofile", "", "write a heap profile to the given file")
	checkCmd.Flags().String("traceprofile", "", "write a runtime trace to the given file")
	registerConfigFlag(checkCmd)
}

// checkOutput bundles the rendering choices shared by the file and
// directory paths.
type checkOutput struct {
	format   string
	pathMode diagfmt.PathMode
	pretty   diagfmt.PrettyOpts
	json     diagfmt.JSONOpts
	sarif    diagfmt.SarifRunMeta
}

func runCheck(cmd *cobra.Command, args []string) error {
	target := args[0]

	rf, err := readRootFlags(cmd)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	schemaPath, err := cmd.Flags().GetString("schema")
	if err != nil {
		return fmt.Errorf("failed to get schema flag: %w", err)
	}
	hostFormat, err := cmd.Flags().GetString("host-format")
	if err != nil {
		return fmt.Errorf("failed to get host-format flag: %w", err)
	}
	delegate, err := cmd.Flags().GetBool("delegate")
	if err != nil {
		return fmt.Errorf("failed to get delegate flag: %w", err)
	}
	noWarnings, err := cmd.Flags().GetBool("no-warnings")
	if err != nil {
		return fmt.Errorf("failed to get no-warnings flag: %w", err)
	}
	warningsAsErrors, err := cmd.Flags().GetBool("warnings-as-errors")
	if err != nil {
		return fmt.Errorf("failed to get warnings-as-errors flag: %w", err)
	}
	if noWarnings && warningsAsErrors {
		return fmt.Errorf("no-warnings and warnings-as-errors flags cannot be used together")
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	suggest, err := cmd.Flags().GetBool("suggest")
	if err != nil {
		return fmt.Errorf("failed to get suggest flag: %w", err)
	}
	preview, err := cmd.Flags().GetBool("preview")
	if err != nil {
		return fmt.Errorf("failed to get preview flag: %w", err)
	}
	pathMode, err := readPathMode(cmd)
	if err != nil {
		return err
	}
	cpuProfile, err := cmd.Flags().GetString("cpuprofile")
	if err != nil {
		return fmt.Errorf("failed to get cpuprofile flag: %w", err)
	}
	memProfile, err := cmd.Flags().GetString("memprofile")
	if err != nil {
		return fmt.Errorf("failed to get memprofile flag: %w", err)
	}
	traceProfile, err := cmd.Flags().GetString("traceprofile")
	if err != nil {
		return fmt.Errorf("failed to get traceprofile flag: %w", err)
	}

	cfg, err := loadConfig(cmd, target)
	if err != nil {
		return err
	}
	opts := driver.Options{
		Config:           cfg,
		MaxDiagnostics:   rf.maxDiags,
		SchemaPath:       schemaPath,
		Format:           hostFormat,
		Delegate:         delegate,
		IgnoreWarnings:   noWarnings,
		WarningsAsErrors: warningsAsErrors,
		EnableTimings:    rf.timings,
	}

	showFixes := suggest || preview
	out := checkOutput{
		format:   format,
		pathMode: pathMode,
		pretty: diagfmt.PrettyOpts{
			Color:       rf.useColor(os.Stdout),
			Context:     2,
			PathMode:    pathMode,
			ShowNotes:   withNotes,
			ShowFixes:   showFixes,
			ShowPreview: preview,
		},
		json: diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     withNotes,
			IncludeFixes:     showFixes,
			IncludePreviews:  preview,
		},
		sarif: diagfmt.SarifRunMeta{
			ToolName:    "weft",
			ToolVersion: version.Version,
		},
	}

	session, err := prof.Start(prof.Options{CPUPath: cpuProfile, MemPath: memProfile, TracePath: traceProfile})
	if err != nil {
		return fmt.Errorf("failed to start profiling: %w", err)
	}
	defer func() {
		if err := session.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write profile: %v\n", err)
		}
	}()

	st, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}
	if st.IsDir() {
		return runCheckDir(cmd, target, opts, rf, out)
	}
	return runCheckFile(cmd, target, opts, rf, out)
}

func runCheckFile(cmd *cobra.Command, path string, opts driver.Options, rf rootFlags, out checkOutput) error {
	result, err := driver.Check(cmd.Context(), path, opts)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	switch out.format {
	case "pretty":
		diagfmt.Pretty(os.Stdout, result.Bag, result.FileSet, out.pretty)
	case "short":
		if s := diag.FormatShortDiagnostics(result.Bag.Items(), result.FileSet, out.pretty.ShowNotes); s != "" {
			fmt.Fprintln(os.Stdout, s)
		}
	case "json":
		if err := diagfmt.JSON(os.Stdout, result.Bag, result.FileSet, out.json); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	case "sarif":
		if err := diagfmt.Sarif(os.Stdout, result.Bag, result.FileSet, out.sarif); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	default:
		return fmt.Errorf("unknown format: %s", out.format)
	}

	if rf.timings && result.Timings != nil {
		printTimings(os.Stderr, result.Timings)
	}
	if result.Bag.HasErrors() {
		return exitDiagnostics(cmd)
	}
	return nil
}

func runCheckDir(cmd *cobra.Command, dir string, opts driver.Options, rf rootFlags, out checkOutput) error {
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}
	dirOpts := driver.DirOptions{Options: opts, Jobs: jobs}

	var result *driver.DirResult
	if out.format == "pretty" && shouldUseTUI(mode) {
		result, err = runCheckDirWithUI(cmd.Context(), dir, dirOpts)
	} else {
		result, err = driver.CheckDir(cmd.Context(), dir, dirOpts)
	}
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	hasErrors := false
	for _, r := range result.Results {
		if r.Bag.HasErrors() {
			hasErrors = true
			break
		}
	}

	switch out.format {
	case "pretty":
		printed := false
		for i, r := range result.Results {
			if r.Bag.Len() == 0 {
				continue
			}
			if printed {
				fmt.Fprintln(os.Stdout)
			}
			printed = true
			if !rf.quiet {
				fmt.Fprintf(os.Stdout, "== %s ==\n", displayPath(result, i, out.pathMode))
			}
			diagfmt.Pretty(os.Stdout, r.Bag, r.FileSet, out.pretty)
		}
		if !rf.quiet {
			issues := result.Bag.Len()
			label := "issues"
			if issues == 1 {
				label = "issue"
			}
			fmt.Fprintf(os.Stdout, "checked %d files: %d %s\n", len(result.Files), issues, label)
		}
	case "json":
		output := make(map[string]diagfmt.DiagnosticsOutput, len(result.Results))
		for i, r := range result.Results {
			output[displayPath(result, i, out.pathMode)] = diagfmt.BuildDiagnosticsOutput(r.Bag, r.FileSet, out.json)
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(output); err != nil {
			return fmt.Errorf("failed to encode diagnostics output: %w", err)
		}
	case "short":
		if s := diag.FormatShortDiagnostics(result.Bag.Items(), dirFileSet(result), out.pretty.ShowNotes); s != "" {
			fmt.Fprintln(os.Stdout, s)
		}
	case "sarif":
		// One run over the merged bag: a SARIF file is a single JSON
		// document, not a concatenation of per-file logs.
		if err := diagfmt.Sarif(os.Stdout, result.Bag, dirFileSet(result), out.sarif); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	default:
		return fmt.Errorf("unknown format: %s", out.format)
	}

	if hasErrors {
		return exitDiagnostics(cmd)
	}
	return nil
}

// displayPath renders one checked file's path for output headers and keys.
// A file that failed to load has no File entry, so the listed path stands
// in.
func displayPath(result *driver.DirResult, i int, mode diagfmt.PathMode) string {
	r := result.Results[i]
	if r.File == nil {
		return result.Files[i]
	}
	return r.File.FormatPath(mode.Mode(), r.FileSet.BaseDir())
}

// dirFileSet returns the set shared by the directory's results. Every
// loaded file lives in one set; an empty directory has none to offer.
func dirFileSet(result *driver.DirResult) *source.FileSet {
	for _, r := range result.Results {
		if r != nil && r.FileSet != nil {
			return r.FileSet
		}
	}
	return source.NewFileSet()
}

type dirOutcome struct {
	result *driver.DirResult
	err    error
}

// runCheckDirWithUI drives the check behind a progress display. Events flow
// from the worker goroutines into the model; the outcome waits until the
// display has drained them.
func runCheckDirWithUI(ctx context.Context, dir string, opts driver.DirOptions) (*driver.DirResult, error) {
	files, err := driver.ListFiles(dir)
	if err != nil {
		return nil, err
	}

	events := make(chan driver.FileEvent, 256)
	outcomeCh := make(chan dirOutcome, 1)
	opts.Events = func(ev driver.FileEvent) { events <- ev }

	go func() {
		res, err := driver.CheckDir(ctx, dir, opts)
		outcomeCh <- dirOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("checking "+dir, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()

	// Keep draining after an early quit so the workers never block on a
	// full channel.
	for range events {
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}

func printTimings(w io.Writer, report *observ.Report) {
	fmt.Fprintln(w, "timings:")
	for _, p := range report.Phases {
		line := fmt.Sprintf("  %-20s %7.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			line += "  // " + p.Note
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "  %-20s %7.2f ms\n", "total", report.TotalMS)
}
