package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tmplq/pkg/api"

	"github.com/spf13/cobra"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a render job",
	Long: `Enqueue a job that renders a registered template with the given params.

The job is rendered asynchronously. Use 'tmplctl status <job_id>' to follow it,
or pass --wait to block until it finishes.

Example:
  tmplctl submit --template badge --params '{"label":"VIP","value":3}'
  tmplctl submit -t greeting --wait`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		templateID, _ := flags.GetString("template")
		rawParams, _ := flags.GetString("params")
		wait, _ := flags.GetBool("wait")
		timeout, _ := flags.GetDuration("timeout")

		if templateID == "" {
			return errors.New("--template is required")
		}

		var params any
		if rawParams != "" {
			dec := json.NewDecoder(bytes.NewReader([]byte(rawParams)))
			dec.UseNumber()
			var obj map[string]any
			if err := dec.Decode(&obj); err != nil {
				return fmt.Errorf("--params must be a JSON object: %w", err)
			}
			params = obj
		}

		client := newClient()
		result, err := client.SubmitJob(api.SubmitJobRequest{TemplateID: templateID, Params: params})
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Code == "queue_full" {
				return fmt.Errorf("queue is full, try again later: %w", err)
			}
			return err
		}

		cmd.Printf("✓ Job submitted!\nJob ID: %d\n", result.JobID)
		if !wait {
			return nil
		}

		job, err := waitForJob(client, result.JobID, timeout)
		if err != nil {
			return err
		}
		cmd.Println()
		printJob(cmd, *job)
		return nil
	},
}

const pollInterval = 200 * time.Millisecond

// waitForJob polls the job until it is SUCCEEDED or FAILED.
func waitForJob(client *Client, id int64, timeout time.Duration) (*api.JobResponse, error) {
	deadline := time.Now().Add(timeout)
	for {
		job, err := client.GetJob(id)
		if err != nil {
			return nil, err
		}
		if job.Status == "SUCCEEDED" || job.Status == "FAILED" {
			return job, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("job %d still %s after %s", id, job.Status, timeout)
		}
		time.Sleep(pollInterval)
	}
}

func init() {
	flags := submitCmd.Flags()
	flags.StringP("template", "t", "", "ID of the template to render (required)")
	flags.StringP("params", "p", "", "Params as a JSON object (default {})")
	flags.BoolP("wait", "w", false, "Wait for the job to finish and print the result")
	flags.Duration("timeout", time.Minute, "How long --wait blocks before giving up")

	rootCmd.AddCommand(submitCmd)
}
