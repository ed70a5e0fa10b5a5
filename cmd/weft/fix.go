package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"weft/internal/diag"
	"weft/internal/driver"
	"weft/internal/fix"
	"weft/internal/source"
)

var fixCmd = &cobra.Command{
	Use:   "fix [flags] <file.weft|directory>",
	Short: "Apply the suggested fixes from a check run",
	Long:  `Fix checks the target, then rewrites the source files with every suggested edit that applies cleanly. When suggestions conflict the first one wins and the rest are skipped`,
	Args:  cobra.ExactArgs(1),
	RunE:  runFix,
}

func init() {
	fixCmd.Flags().String("schema", "", "schema file overriding discovery")
	fixCmd.Flags().Bool("dry-run", false, "report what would change without writing")
	fixCmd.Flags().Bool("backup", false, "keep the previous content in <file>.bak")
	fixCmd.Flags().Int("jobs", 0, "max parallel workers for directories (0=auto)")
	registerConfigFlag(fixCmd)
}

func runFix(cmd *cobra.Command, args []string) error {
	target := args[0]

	rf, err := readRootFlags(cmd)
	if err != nil {
		return err
	}
	schemaPath, err := cmd.Flags().GetString("schema")
	if err != nil {
		return fmt.Errorf("failed to get schema flag: %w", err)
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return fmt.Errorf("failed to get dry-run flag: %w", err)
	}
	backup, err := cmd.Flags().GetBool("backup")
	if err != nil {
		return fmt.Errorf("failed to get backup flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}

	cfg, err := loadConfig(cmd, target)
	if err != nil {
		return err
	}
	opts := driver.Options{
		Config:         cfg,
		MaxDiagnostics: rf.maxDiags,
		SchemaPath:     schemaPath,
	}

	st, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", target, err)
	}

	var fileSet *source.FileSet
	var diags []diag.Diagnostic
	if st.IsDir() {
		result, err := driver.CheckDir(cmd.Context(), target, driver.DirOptions{Options: opts, Jobs: jobs})
		if err != nil {
			return fmt.Errorf("check failed: %w", err)
		}
		fileSet = dirFileSet(result)
		diags = result.Bag.Items()
	} else {
		result, err := driver.Check(cmd.Context(), target, opts)
		if err != nil {
			return fmt.Errorf("check failed: %w", err)
		}
		fileSet = result.FileSet
		diags = result.Bag.Items()
	}

	res, err := fix.Apply(fileSet, diags, fix.Options{DryRun: dryRun, Backup: backup})
	if errors.Is(err, fix.ErrNoFixes) {
		if !rf.quiet {
			fmt.Println("no applicable fixes")
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("fix failed: %w", err)
	}

	if !rf.quiet {
		for _, a := range res.Applied {
			fmt.Printf("applied: %s (%s)\n", a.Title, a.Path)
		}
		for _, s := range res.Skipped {
			fmt.Printf("skipped: %s: %s\n", s.Title, s.Reason)
		}
		switch {
		case len(res.Changes) == 0:
			fmt.Println("nothing to rewrite")
		case dryRun:
			fmt.Printf("would rewrite %d file(s)\n", len(res.Changes))
		default:
			fmt.Printf("rewrote %d file(s)\n", len(res.Changes))
		}
	}
	return nil
}
