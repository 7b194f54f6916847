package command

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Format selects how structured results are printed.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func formatFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", string(FormatText), "Output format: text, json, yaml")
}

func getFormat(cmd *cobra.Command) (Format, error) {
	raw, _ := cmd.Flags().GetString("format")
	switch format := Format(strings.ToLower(strings.TrimSpace(raw))); format {
	case FormatText, FormatJSON, FormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use text, json or yaml)", raw)
	}
}

// writeData prints v as JSON or YAML. YAML goes through JSON first so the
// json tags on the schema types decide the key names.
func writeData(w io.Writer, format Format, v any) error {
	switch format {
	case FormatYAML:
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// writeOutput sends data to path, or to the command's stdout when path is
// empty or "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
