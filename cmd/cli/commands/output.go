package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// output formats
const (
	outputJSON = "json"
	outputYAML = "yaml"
)

func outputFormat(cmd *cobra.Command) (string, error) {
	format, err := cmd.Flags().GetString(flagOutput)
	if err != nil {
		return "", fmt.Errorf("error getting output flag: %w", err)
	}
	switch format {
	case outputJSON, outputYAML:
		return format, nil
	}
	return "", fmt.Errorf("unsupported output format %q (want json or yaml)", format)
}

// printOutput renders v to the command's output in the selected format
func printOutput(cmd *cobra.Command, v interface{}) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	var out []byte
	switch format {
	case outputYAML:
		out, err = yaml.Marshal(v)
	default:
		out, err = json.MarshalIndent(v, "", "  ")
		out = append(out, '\n')
	}
	if err != nil {
		return fmt.Errorf("error formatting response: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
