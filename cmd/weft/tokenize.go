package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"weft/internal/diagfmt"
	"weft/internal/driver"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize [flags] <file.weft>",
	Short: "Split a template into its regions",
	Long:  `Tokenize lists the text, expression, statement, and comment regions of a template`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenize,
}

func init() {
	tokenizeCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	registerConfigFlag(tokenizeCmd)
}

func runTokenize(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	rf, err := readRootFlags(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, filePath)
	if err != nil {
		return err
	}

	result, err := driver.Tokenize(filePath, driver.Options{
		Config:         cfg,
		MaxDiagnostics: rf.maxDiags,
	})
	if err != nil {
		return fmt.Errorf("tokenization failed: %w", err)
	}

	reportToStderr(rf, result.Bag, result.FileSet)

	switch format {
	case "pretty":
		return diagfmt.FormatTokensPretty(os.Stdout, result.Tokens, result.FileSet)
	case "json":
		return diagfmt.FormatTokensJSON(os.Stdout, result.Tokens)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
