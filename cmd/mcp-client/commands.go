package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List persona ids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return callTool(cmd.Context(), "persona_list", nil)
	},
}

var noOverride bool

var promptCmd = &cobra.Command{
	Use:   "prompt [persona_id]",
	Short: "Print the flattened prompt and metadata of a persona",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		toolArgs := personaArgs(args)
		toolArgs["apply_override"] = !noOverride
		return callTool(cmd.Context(), "persona_prompt", toolArgs)
	},
}

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Manage persona override records",
}

var overrideGetCmd = &cobra.Command{
	Use:   "get [persona_id]",
	Short: "Show the stored override record",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callTool(cmd.Context(), "persona_override_get", personaArgs(args))
	},
}

var overrideSetCmd = &cobra.Command{
	Use:   "set [persona_id]",
	Short: "Replace the stored override record with the given fields",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		toolArgs := personaArgs(args)
		for k, v := range overrideFlagArgs(cmd.Flags()) {
			toolArgs[k] = v
		}
		return callTool(cmd.Context(), "persona_override_save", toolArgs)
	},
}

var overrideDeleteCmd = &cobra.Command{
	Use:   "delete [persona_id]",
	Short: "Delete the stored override record",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callTool(cmd.Context(), "persona_override_delete", personaArgs(args))
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <persona_id> <message>",
	Short: "Ask the persona a question through Gemini",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callTool(cmd.Context(), "persona_preview", map[string]any{
			"persona_id": args[0],
			"message":    args[1],
		})
	},
}

// overrideFlags maps CLI flag names to override field names.
var overrideFlags = map[string]string{
	"name":               "name",
	"description":        "description",
	"preferred-language": "preferred_language",
	"verbosity":          "verbosity",
}

func init() {
	promptCmd.Flags().BoolVar(&noOverride, "no-override", false, "ignore the stored override record")

	for flag, field := range overrideFlags {
		overrideSetCmd.Flags().String(flag, "", "override "+field)
	}
	overrideCmd.AddCommand(overrideGetCmd, overrideSetCmd, overrideDeleteCmd)
}

func personaArgs(args []string) map[string]any {
	m := map[string]any{}
	if len(args) > 0 {
		m["persona_id"] = args[0]
	}
	return m
}

// overrideFlagArgs returns the override fields whose flags were set explicitly.
func overrideFlagArgs(flags *pflag.FlagSet) map[string]any {
	out := map[string]any{}
	for flag, field := range overrideFlags {
		if !flags.Changed(flag) {
			continue
		}
		v, err := flags.GetString(flag)
		if err != nil {
			continue
		}
		out[field] = v
	}
	return out
}
