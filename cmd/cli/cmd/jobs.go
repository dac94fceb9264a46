package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List render jobs",
	Long:  `List every job the server knows about in submission order. Use --status to filter.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")

		jobs, err := newClient().ListJobs()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "JOB ID\tTEMPLATE\tSTATUS\tENQUEUED AT")
		n := 0
		for _, j := range jobs {
			if status != "" && j.Status != status {
				continue
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
				j.ID,
				j.TemplateID,
				j.Status,
				j.EnqueuedAt.Format(time.RFC3339),
			)
			n++
		}
		if n == 0 {
			cmd.Println("No jobs found.")
			return nil
		}
		w.Flush()
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently finished jobs",
	Long:  `Show the bounded history of finished jobs, most recent first, with a preview of each rendered output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := newClient().History()
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			cmd.Println("No finished jobs yet.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "JOB ID\tTEMPLATE\tSTATUS\tDURATION\tFINISHED AT\tOUTPUT")
		for _, e := range entries {
			finishedAt := ""
			if e.DoneAt != nil {
				finishedAt = e.DoneAt.Format(time.RFC3339)
			}
			out := e.Preview
			if e.Error != nil {
				out = e.Error.Kind + ": " + e.Error.Message
			}

			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				e.ID,
				e.TemplateID,
				e.Status,
				formatDuration(time.Duration(e.DurationMs)*time.Millisecond),
				finishedAt,
				truncate(out, 50),
			)
		}
		w.Flush()
		return nil
	},
}

func init() {
	jobsCmd.Flags().String("status", "", "Only show jobs in this state (QUEUED, PROCESSING, SUCCEEDED, FAILED)")

	rootCmd.AddCommand(jobsCmd, historyCmd)
}
