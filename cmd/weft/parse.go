package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"weft/internal/ast"
	"weft/internal/driver"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] <file.weft>",
	Short: "Parse a template and print its tree",
	Long:  `Parse builds the positioned document tree for a template and prints it, recovering past syntax errors where it can`,
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	registerConfigFlag(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	rf, err := readRootFlags(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, filePath)
	if err != nil {
		return err
	}

	result, err := driver.Parse(filePath, driver.Options{
		Config:         cfg,
		MaxDiagnostics: rf.maxDiags,
	})
	if err != nil {
		return fmt.Errorf("parsing failed: %w", err)
	}

	reportToStderr(rf, result.Bag, result.FileSet)

	if result.Doc != nil {
		ast.Fprint(os.Stdout, result.Doc)
	}
	if result.Bag.HasErrors() {
		return exitDiagnostics(cmd)
	}
	return nil
}
