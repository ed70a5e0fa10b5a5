package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"weft/internal/driver"
	"weft/internal/format"
)

var fmtCmd = &cobra.Command{
	Use:   "fmt [flags] <file.weft|directory>",
	Short: "Normalize tag spacing in templates",
	Long:  `Fmt sets the space between each tag's delimiters and its content to exactly one, leaving the host text and tag interiors alone. Without -w the result goes to stdout`,
	Args:  cobra.ExactArgs(1),
	RunE:  runFmt,
}

func init() {
	fmtCmd.Flags().BoolP("write", "w", false, "rewrite files in place instead of printing")
	fmtCmd.Flags().BoolP("list", "l", false, "list files whose formatting differs")
	registerConfigFlag(fmtCmd)
}

func runFmt(cmd *cobra.Command, args []string) error {
	target := args[0]

	rf, err := readRootFlags(cmd)
	if err != nil {
		return err
	}
	write, err := cmd.Flags().GetBool("write")
	if err != nil {
		return fmt.Errorf("failed to get write flag: %w", err)
	}
	list, err := cmd.Flags().GetBool("list")
	if err != nil {
		return fmt.Errorf("failed to get list flag: %w", err)
	}

	cfg, err := loadConfig(cmd, target)
	if err != nil {
		return err
	}
	opts := driver.Options{Config: cfg, MaxDiagnostics: rf.maxDiags}

	st, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", target, err)
	}
	files := []string{target}
	if st.IsDir() {
		if files, err = driver.ListFiles(target); err != nil {
			return fmt.Errorf("failed to list %s: %w", target, err)
		}
	}

	hadErrors := false
	for _, path := range files {
		result, err := driver.Tokenize(path, opts)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		// A file that does not lex cleanly is passed through untouched;
		// formatting half-understood tags would destroy information.
		if result.Bag.HasErrors() {
			reportToStderr(rf, result.Bag, result.FileSet)
			hadErrors = true
			if !write && !list {
				if _, err := os.Stdout.Write(result.File.Content); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
			}
			continue
		}

		out := format.Normalize(result.File, result.Tokens)
		changed := !bytes.Equal(out, result.File.Content)

		switch {
		case list:
			if changed {
				fmt.Println(path)
			}
			if write && changed {
				if err := os.WriteFile(path, out, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
			}
		case write:
			if changed {
				if err := os.WriteFile(path, out, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
			}
		default:
			if _, err := os.Stdout.Write(out); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
	}

	if hadErrors {
		return exitDiagnostics(cmd)
	}
	return nil
}
