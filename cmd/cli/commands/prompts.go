package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/celestiaorg/jobdesk/internal/types"
)

// Prompt flag names
const (
	flagVersion = "version"
	flagText    = "text"
	flagFile    = "file"
)

// promptUpdateOutput represents the result of a prompt change
type promptUpdateOutput struct {
	Version int    `json:"version,omitempty" yaml:"version,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func newPromptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Manage the proposal generation prompt",
	}
	cmd.AddCommand(newListPromptsCmd())
	cmd.AddCommand(newGetPromptCmd())
	cmd.AddCommand(newActivePromptCmd())
	cmd.AddCommand(newUpdatePromptCmd())
	cmd.AddCommand(newRollbackPromptCmd())
	return cmd
}

func newListPromptsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List prompt versions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			versions, err := apiClient.ListPromptVersions(cmd.Context())
			if err != nil {
				return fmt.Errorf("error listing prompt versions: %w", err)
			}
			if versions == nil {
				versions = []types.PromptVersion{}
			}
			return printOutput(cmd, versions)
		},
	}
}

func newGetPromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get one prompt version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			version, _ := cmd.Flags().GetInt(flagVersion)
			prompt, err := apiClient.GetPrompt(cmd.Context(), version)
			if err != nil {
				return fmt.Errorf("error getting prompt version %d: %w", version, err)
			}
			return printOutput(cmd, prompt)
		},
	}
	cmd.Flags().IntP(flagVersion, "v", 0, "Prompt version")
	_ = cmd.MarkFlagRequired(flagVersion)
	return cmd
}

func newActivePromptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "Get the active prompt",
		RunE: func(cmd *cobra.Command, _ []string) error {
			prompt, err := apiClient.GetActivePrompt(cmd.Context())
			if err != nil {
				return fmt.Errorf("error getting active prompt: %w", err)
			}
			return printOutput(cmd, prompt)
		},
	}
}

func newUpdatePromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Publish a new prompt version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, _ := cmd.Flags().GetString(flagText)
			if path, _ := cmd.Flags().GetString(flagFile); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("error reading prompt file: %w", err)
				}
				text = string(data)
			}

			version, err := apiClient.UpdatePrompt(cmd.Context(), text)
			if err != nil {
				return fmt.Errorf("error updating prompt: %w", err)
			}

			out := promptUpdateOutput{Message: "Prompt updated"}
			if version >= 0 {
				out.Version = version
				out.Message = fmt.Sprintf("Prompt updated to version %d", version)
			}
			return printOutput(cmd, out)
		},
	}
	cmd.Flags().String(flagText, "", "Prompt text")
	cmd.Flags().StringP(flagFile, "f", "", "Read the prompt text from a file")
	cmd.MarkFlagsMutuallyExclusive(flagText, flagFile)
	cmd.MarkFlagsOneRequired(flagText, flagFile)
	return cmd
}

func newRollbackPromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Make an earlier prompt version active",
		RunE: func(cmd *cobra.Command, _ []string) error {
			version, _ := cmd.Flags().GetInt(flagVersion)
			if err := apiClient.RollbackPrompt(cmd.Context(), version); err != nil {
				return fmt.Errorf("error rolling back prompt: %w", err)
			}
			return printOutput(cmd, promptUpdateOutput{
				Version: version,
				Message: fmt.Sprintf("Prompt rolled back to version %d", version),
			})
		},
	}
	cmd.Flags().IntP(flagVersion, "v", 0, "Prompt version to activate")
	_ = cmd.MarkFlagRequired(flagVersion)
	return cmd
}
