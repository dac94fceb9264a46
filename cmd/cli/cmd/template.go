package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"tmplq/pkg/api"

	"github.com/spf13/cobra"
)

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"templates", "tpl"},
	Short:   "Manage templates",
	Long: `Register, inspect and remove templates.

A template body contains placeholders of the form {{key}} or {{key|fallback}}.
Keys may be dotted paths into nested params, e.g. {{user.name}}.`,
}

var templateCreateCmd = &cobra.Command{
	Use:   "create [template_id]",
	Short: "Register a new template",
	Long: `Register a new template. The body is read from --body, or from --file ("-" reads stdin).

Example:
  tmplctl template create greeting --body "Hello {{name|friend}}!"
  tmplctl template create invoice --file invoice.tmpl --description "Monthly invoice"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, _, err := readBody(cmd)
		if err != nil {
			return err
		}
		if body == "" {
			return errors.New("one of --body or --file is required")
		}
		description, _ := cmd.Flags().GetString("description")
		sample, err := sampleParams(cmd)
		if err != nil {
			return err
		}

		result, err := newClient().CreateTemplate(api.CreateTemplateRequest{
			ID:           args[0],
			Description:  description,
			Body:         body,
			SampleParams: sample,
		})
		if err != nil {
			return err
		}

		cmd.Printf("✓ Template created!\nTemplate ID: %s\n", result.ID)
		return nil
	},
}

var templateUpdateCmd = &cobra.Command{
	Use:   "update [template_id]",
	Short: "Update a template, creating it if it does not exist",
	Long: `Replace the supplied fields of a template. Fields that are not given keep their value.
Jobs that have not started yet render with the updated body.

Example:
  tmplctl template update greeting --body "Hi {{name}}"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req api.UpdateTemplateRequest

		body, ok, err := readBody(cmd)
		if err != nil {
			return err
		}
		if ok {
			req.Body = &body
		}
		if cmd.Flags().Changed("description") {
			description, _ := cmd.Flags().GetString("description")
			req.Description = &description
		}
		if req.SampleParams, err = sampleParams(cmd); err != nil {
			return err
		}
		if req.Body == nil && req.Description == nil && req.SampleParams == nil {
			return errors.New("nothing to update: pass --body, --file, --description or --sample")
		}

		result, err := newClient().UpdateTemplate(args[0], req)
		if err != nil {
			return err
		}

		if result.Created {
			cmd.Printf("✓ Template %s created\n", result.ID)
		} else {
			cmd.Printf("✓ Template %s updated\n", result.ID)
		}
		return nil
	},
}

var templateGetCmd = &cobra.Command{
	Use:   "get [template_id]",
	Short: "Show a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := newClient().GetTemplate(args[0])
		if err != nil {
			return err
		}

		cmd.Printf("%sTemplate Details%s\n", colorBold, colorReset)
		cmd.Println("──────────────────────────────")
		cmd.Printf("%sID:%s          %s\n", colorDim, colorReset, t.ID)
		if t.Description != "" {
			cmd.Printf("%sDescription:%s %s\n", colorDim, colorReset, t.Description)
		}
		cmd.Printf("%sCreated:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(&t.CreatedAt))
		cmd.Printf("%sUpdated:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(&t.UpdatedAt))
		if len(t.SampleParams) > 0 {
			sample, _ := json.Marshal(t.SampleParams)
			cmd.Printf("%sSample:%s      %s\n", colorDim, colorReset, sample)
		}
		cmd.Printf("%sBody:%s\n%s\n", colorDim, colorReset, t.Body)
		return nil
	},
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		templates, err := newClient().ListTemplates()
		if err != nil {
			return err
		}

		if len(templates) == 0 {
			cmd.Println("No templates found.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tDESCRIPTION\tSIZE\tUPDATED")
		for _, t := range templates {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s ago\n",
				t.ID,
				truncate(t.Description, 40),
				len(t.Body),
				relativeTime(t.UpdatedAt),
			)
		}
		w.Flush()
		return nil
	},
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete [template_id]",
	Short: "Delete a template",
	Long:  `Delete a template. Queued jobs that reference it will fail with a render error when processed.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().DeleteTemplate(args[0]); err != nil {
			return err
		}
		cmd.Printf("✓ Template %s deleted\n", args[0])
		return nil
	},
}

// readBody returns the template body from --body or --file and whether one was given.
func readBody(cmd *cobra.Command) (string, bool, error) {
	flags := cmd.Flags()
	if flags.Changed("body") && flags.Changed("file") {
		return "", false, errors.New("--body and --file are mutually exclusive")
	}
	if flags.Changed("body") {
		body, _ := flags.GetString("body")
		return body, true, nil
	}
	if !flags.Changed("file") {
		return "", false, nil
	}

	path, _ := flags.GetString("file")
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read template body: %w", err)
	}
	return string(data), true, nil
}

func sampleParams(cmd *cobra.Command) (map[string]any, error) {
	raw, _ := cmd.Flags().GetString("sample")
	if raw == "" {
		return nil, nil
	}
	var sample map[string]any
	if err := json.Unmarshal([]byte(raw), &sample); err != nil {
		return nil, fmt.Errorf("--sample must be a JSON object: %w", err)
	}
	return sample, nil
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	for _, c := range []*cobra.Command{templateCreateCmd, templateUpdateCmd} {
		flags := c.Flags()
		flags.StringP("body", "b", "", "Template body")
		flags.StringP("file", "f", "", `Read the template body from a file ("-" for stdin)`)
		flags.StringP("description", "d", "", "Human-readable description")
		flags.String("sample", "", "Example params as a JSON object")
	}

	templateCmd.AddCommand(templateCreateCmd, templateUpdateCmd, templateGetCmd, templateListCmd, templateDeleteCmd)
	rootCmd.AddCommand(templateCmd)
}
