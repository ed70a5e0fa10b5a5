package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"weft/internal/driver"
	"weft/internal/eval"
)

var renderCmd = &cobra.Command{
	Use:   "render [flags] <file.weft>",
	Short: "Evaluate a template against host data and print the result",
	Long:  `Render checks the template, evaluates it against the data file, and writes the produced host-format text. Nothing is written when checking or evaluation fails`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().String("data", "", "JSON or YAML file with the host data")
	renderCmd.Flags().String("schema", "", "schema file overriding discovery")
	renderCmd.Flags().String("out", "", "write the rendered text to a file instead of stdout")
	renderCmd.Flags().Int("max-depth", 0, "include nesting limit (0=default)")
	registerConfigFlag(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	rf, err := readRootFlags(cmd)
	if err != nil {
		return err
	}
	dataPath, err := cmd.Flags().GetString("data")
	if err != nil {
		return fmt.Errorf("failed to get data flag: %w", err)
	}
	schemaPath, err := cmd.Flags().GetString("schema")
	if err != nil {
		return fmt.Errorf("failed to get schema flag: %w", err)
	}
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}
	maxDepth, err := cmd.Flags().GetInt("max-depth")
	if err != nil {
		return fmt.Errorf("failed to get max-depth flag: %w", err)
	}

	data, err := loadHostData(dataPath)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, filePath)
	if err != nil {
		return err
	}

	// The template evaluates into a buffer so a mid-document fault never
	// leaves a truncated artifact behind.
	var buf bytes.Buffer
	result, renderErr := driver.Render(cmd.Context(), &buf, filePath, driver.RenderOptions{
		Options: driver.Options{
			Config:         cfg,
			MaxDiagnostics: rf.maxDiags,
			SchemaPath:     schemaPath,
		},
		Data:     data,
		MaxDepth: maxDepth,
	})
	if renderErr != nil && result == nil {
		return fmt.Errorf("render failed: %w", renderErr)
	}

	reportToStderr(rf, result.Bag, result.FileSet)

	if renderErr != nil {
		var evalErr *eval.Error
		if errors.As(renderErr, &evalErr) && result.File != nil && evalErr.Span.File == result.File.ID {
			start, _ := result.FileSet.Resolve(evalErr.Span)
			name := result.File.FormatPath("auto", result.FileSet.BaseDir())
			fmt.Fprintf(os.Stderr, "%s:%d:%d: render error: %s\n", name, start.Line+1, start.Col+1, evalErr.Msg)
		} else {
			fmt.Fprintf(os.Stderr, "render error: %v\n", renderErr)
		}
		return exitDiagnostics(cmd)
	}
	if result.Bag.HasErrors() {
		return exitDiagnostics(cmd)
	}

	if outPath != "" {
		if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if _, err := os.Stdout.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// loadHostData decodes the data file by extension: yaml for .yaml and
// .yml, JSON otherwise. No file means no data, which renders every
// expression as absent.
func loadHostData(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	data := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("failed to decode data file: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("failed to decode data file: %w", err)
		}
	}
	return data, nil
}
