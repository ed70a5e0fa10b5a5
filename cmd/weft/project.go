package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"weft/internal/driver"
)

var projectCmd = &cobra.Command{
	Use:   "project [flags] <file.weft>",
	Short: "Print the cleaned host-format view of a template",
	Long:  `Project replaces every template tag with width-preserving filler so host-format tools can read the document, and prints the result`,
	Args:  cobra.ExactArgs(1),
	RunE:  runProject,
}

func init() {
	projectCmd.Flags().String("host-format", "", "host format override (json|yaml|html|xml|toml|markdown|text)")
	projectCmd.Flags().Bool("mapping", false, "print the segment mapping table instead of the cleaned text")
	projectCmd.Flags().Bool("json", false, "emit cleaned text, format hint, and mapping as JSON")
	projectCmd.Flags().String("out", "", "write the cleaned text to a file instead of stdout")
	registerConfigFlag(projectCmd)
}

// projectionPayload matches the wire shape of the weft/projection LSP
// request, so editor plugins and scripts parse one schema.
type projectionPayload struct {
	CleanedText string             `json:"cleanedText"`
	FormatHint  string             `json:"formatHint"`
	Mapping     []projectedSegment `json:"mapping"`
}

type projectedSegment struct {
	CleanedStart  uint32 `json:"cleanedStart"`
	CleanedEnd    uint32 `json:"cleanedEnd"`
	OriginalStart uint32 `json:"originalStart"`
	OriginalEnd   uint32 `json:"originalEnd"`
	Elided        bool   `json:"elided,omitempty"`
}

func runProject(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	rf, err := readRootFlags(cmd)
	if err != nil {
		return err
	}
	hostFormat, err := cmd.Flags().GetString("host-format")
	if err != nil {
		return fmt.Errorf("failed to get host-format flag: %w", err)
	}
	showMapping, err := cmd.Flags().GetBool("mapping")
	if err != nil {
		return fmt.Errorf("failed to get mapping flag: %w", err)
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to get json flag: %w", err)
	}
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}
	if showMapping && asJSON {
		return fmt.Errorf("mapping and json flags cannot be used together")
	}
	if outPath != "" && (showMapping || asJSON) {
		return fmt.Errorf("out flag only applies to the cleaned text output")
	}

	cfg, err := loadConfig(cmd, filePath)
	if err != nil {
		return err
	}
	result, err := driver.Project(filePath, driver.Options{
		Config:         cfg,
		Format:         hostFormat,
		MaxDiagnostics: rf.maxDiags,
	})
	if err != nil {
		return fmt.Errorf("projection failed: %w", err)
	}

	reportToStderr(rf, result.Bag, result.FileSet)
	snap := result.Snapshot

	switch {
	case asJSON:
		payload := projectionPayload{
			CleanedText: snap.Cleaned,
			FormatHint:  string(snap.Format),
			Mapping:     make([]projectedSegment, 0, len(snap.Segments)),
		}
		for _, seg := range snap.Segments {
			payload.Mapping = append(payload.Mapping, projectedSegment{
				CleanedStart:  seg.Cleaned.Start,
				CleanedEnd:    seg.Cleaned.End,
				OriginalStart: seg.Original.Start,
				OriginalEnd:   seg.Original.End,
				Elided:        seg.Elided,
			})
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(payload); err != nil {
			return fmt.Errorf("failed to encode projection: %w", err)
		}
	case showMapping:
		fmt.Fprintf(os.Stdout, "format: %s\n", snap.Format)
		fmt.Fprintln(os.Stdout, "cleaned            original")
		for _, seg := range snap.Segments {
			suffix := ""
			if seg.Elided {
				suffix = "  (elided)"
			}
			fmt.Fprintf(os.Stdout, "%6d..%-6d  <-  %6d..%-6d%s\n",
				seg.Cleaned.Start, seg.Cleaned.End, seg.Original.Start, seg.Original.End, suffix)
		}
	case outPath != "":
		if err := os.WriteFile(outPath, []byte(snap.Cleaned), 0o644); err != nil {
			return fmt.Errorf("failed to write cleaned text: %w", err)
		}
	default:
		fmt.Fprint(os.Stdout, snap.Cleaned)
	}

	if result.Bag.HasErrors() {
		return exitDiagnostics(cmd)
	}
	return nil
}
