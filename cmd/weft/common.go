package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"weft/internal/diag"
	"weft/internal/diagfmt"
	"weft/internal/source"
	"weft/internal/workspace"
)

// rootFlags carries the persistent flags every subcommand shares.
type rootFlags struct {
	color    string
	quiet    bool
	timings  bool
	maxDiags int
}

func readRootFlags(cmd *cobra.Command) (rootFlags, error) {
	pf := cmd.Root().PersistentFlags()
	var rf rootFlags
	var err error
	if rf.color, err = pf.GetString("color"); err != nil {
		return rf, fmt.Errorf("failed to get color flag: %w", err)
	}
	if rf.quiet, err = pf.GetBool("quiet"); err != nil {
		return rf, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if rf.timings, err = pf.GetBool("timings"); err != nil {
		return rf, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if rf.maxDiags, err = pf.GetInt("max-diagnostics"); err != nil {
		return rf, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	return rf, nil
}

func (f rootFlags) useColor(out *os.File) bool {
	return f.color == "on" || (f.color == "auto" && isTerminal(out))
}

// registerConfigFlag adds the shared --config override to a command.
func registerConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "weft.toml to use instead of discovering one")
}

// loadConfig resolves the workspace config for target: an explicit --config
// wins, otherwise the nearest weft.toml above the target's directory.
func loadConfig(cmd *cobra.Command, target string) (*workspace.Config, error) {
	explicit, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if explicit != "" {
		return workspace.Load(explicit)
	}
	dir := target
	if st, err := os.Stat(target); err == nil && !st.IsDir() {
		dir = filepath.Dir(target)
	}
	return workspace.Discover(dir)
}

func readPathMode(cmd *cobra.Command) (diagfmt.PathMode, error) {
	s, err := cmd.Flags().GetString("paths")
	if err != nil {
		return 0, fmt.Errorf("failed to get paths flag: %w", err)
	}
	mode, ok := diagfmt.ParsePathMode(s)
	if !ok {
		return 0, fmt.Errorf("unknown paths value: %s", s)
	}
	return mode, nil
}

// reportToStderr pretty-prints a bag to stderr. Commands whose stdout is
// the payload (tokens, trees, cleaned text, rendered output) route their
// diagnostics here.
func reportToStderr(rf rootFlags, bag *diag.Bag, fs *source.FileSet) {
	if bag.Len() == 0 {
		return
	}
	diagfmt.Pretty(os.Stderr, bag, fs, diagfmt.PrettyOpts{
		Color:   rf.useColor(os.Stderr),
		Context: 2,
	})
}

// exitDiagnostics turns printed diagnostics into exit status 1 without
// cobra's usage noise repeating the story.
func exitDiagnostics(cmd *cobra.Command) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return fmt.Errorf("")
}
