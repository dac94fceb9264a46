package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"tmplq/pkg/api"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or change runtime settings",
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := newClient().GetConfig()
		if err != nil {
			return err
		}
		printSettings(cmd, *settings)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set key=value [key=value...]",
	Short: "Change runtime settings",
	Long: `Change one or more runtime settings. The update is applied only if every value is valid.

Keys: queue_capacity, history_capacity, max_template_bytes, processing_delay_ms.min,
processing_delay_ms.max. processing_delay_ms also accepts a JSON object.

Example:
  tmplctl config set queue_capacity=100 history_capacity=50
  tmplctl config set processing_delay_ms='{"min":0,"max":200}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := parseSettings(args)
		if err != nil {
			return err
		}

		result, err := newClient().UpdateConfig(patch)
		if err != nil {
			return err
		}

		cmd.Printf("✓ %s\n", result.Message)
		printSettings(cmd, result.Config)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pipeline counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := newClient().Stats()
		if err != nil {
			return err
		}

		cmd.Printf("%sPipeline Stats%s\n", colorBold, colorReset)
		cmd.Println("──────────────────────────────")
		cmd.Printf("%sTemplates:%s     %d\n", colorDim, colorReset, st.Templates)
		cmd.Printf("%sQueue Depth:%s   %d\n", colorDim, colorReset, st.QueueDepth)
		cmd.Printf("%sJobs:%s          %d total\n", colorDim, colorReset, st.TotalJobs)
		cmd.Printf("  %s  %d\n", colorizeStatus("QUEUED"), st.Queued)
		cmd.Printf("  %s  %d\n", colorizeStatus("PROCESSING"), st.Processing)
		cmd.Printf("  %s  %d\n", colorizeStatus("SUCCEEDED"), st.Succeeded)
		cmd.Printf("  %s  %d\n", colorizeStatus("FAILED"), st.Failed)
		cmd.Printf("%sHistory:%s       %d\n", colorDim, colorReset, st.HistorySize)
		return nil
	},
}

func printSettings(cmd *cobra.Command, s api.Settings) {
	cmd.Printf("%squeue_capacity:%s       %d\n", colorDim, colorReset, s.QueueCapacity)
	cmd.Printf("%shistory_capacity:%s     %d\n", colorDim, colorReset, s.HistoryCapacity)
	cmd.Printf("%smax_template_bytes:%s   %d\n", colorDim, colorReset, s.MaxTemplateBytes)
	cmd.Printf("%sprocessing_delay_ms:%s  %d-%d\n", colorDim, colorReset, s.ProcessingDelayMs.Min, s.ProcessingDelayMs.Max)
}

// parseSettings turns key=value pairs into a PATCH /config body.
// Dotted keys nest one level. Values that are not JSON are sent as strings.
func parseSettings(args []string) (map[string]any, error) {
	patch := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid setting %q: expected key=value", arg)
		}
		value := parseValue(raw)

		parent, child, nested := strings.Cut(key, ".")
		if !nested {
			if _, exists := patch[key]; exists {
				return nil, fmt.Errorf("invalid setting %q: %s is already set", arg, key)
			}
			patch[key] = value
			continue
		}
		obj, ok := patch[parent].(map[string]any)
		if !ok {
			if _, exists := patch[parent]; exists {
				return nil, fmt.Errorf("invalid setting %q: %s is already set", arg, parent)
			}
			obj = make(map[string]any)
			patch[parent] = obj
		}
		if _, exists := obj[child]; exists {
			return nil, fmt.Errorf("invalid setting %q: %s is already set", arg, key)
		}
		obj[child] = value
	}
	return patch, nil
}

func parseValue(raw string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	return v
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd, statsCmd)
}
