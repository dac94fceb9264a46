package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tmplq/pkg/api"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [job_id]",
	Short: "Get status of a render job",
	Long:  `Retrieve detailed status information for a render job, including its current state (QUEUED, PROCESSING, SUCCEEDED, FAILED), timestamps and, once finished, the rendered output or the failure reason.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid job id %q", args[0])
		}

		job, err := newClient().GetJob(id)
		if err != nil {
			return err
		}

		printJob(cmd, *job)
		return nil
	},
}

func printJob(cmd *cobra.Command, job api.JobResponse) {
	// Header with status icon
	icon := statusIcon(job.Status)
	cmd.Printf("%s %sJob Details%s\n", icon, colorBold, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sID:%s          %d\n", colorDim, colorReset, job.ID)
	cmd.Printf("%sStatus:%s      %s\n", colorDim, colorReset, colorizeStatus(job.Status))
	cmd.Printf("%sTemplate:%s    %s\n", colorDim, colorReset, job.TemplateID)

	if len(job.Params) > 0 {
		params, _ := json.Marshal(job.Params)
		cmd.Printf("%sParams:%s      %s\n", colorDim, colorReset, params)
	}

	// Timestamps with relative time
	cmd.Printf("%sEnqueued:%s    %s\n", colorDim, colorReset, formatTimeWithRelative(&job.EnqueuedAt))
	cmd.Printf("%sStarted:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(job.StartedAt))
	if job.StartedAt != nil && job.DoneAt != nil {
		duration := job.DoneAt.Sub(*job.StartedAt)
		cmd.Printf("%sFinished:%s    %s %s(%s)%s\n", colorDim, colorReset,
			formatTimeWithRelative(job.DoneAt),
			colorCyan, formatDuration(duration), colorReset)
	} else {
		cmd.Printf("%sFinished:%s    %s\n", colorDim, colorReset, formatTimeWithRelative(job.DoneAt))
	}

	if job.Error != nil {
		cmd.Printf("%sError:%s       %s%s: %s%s\n", colorDim, colorReset, colorRed, job.Error.Kind, job.Error.Message, colorReset)
	}

	if job.Result != nil {
		if len(job.Result.UsedKeys) > 0 {
			cmd.Printf("%sUsed Keys:%s   %s\n", colorDim, colorReset, strings.Join(job.Result.UsedKeys, ", "))
		}
		if len(job.Result.MissingKeys) > 0 {
			cmd.Printf("%sMissing:%s     %s%s%s\n", colorDim, colorReset, colorYellow, strings.Join(job.Result.MissingKeys, ", "), colorReset)
		}
		cmd.Printf("%sResult:%s\n%s\n", colorDim, colorReset, job.Result.Output)
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func statusIcon(status string) string {
	switch status {
	case "SUCCEEDED":
		return colorGreen + "✓" + colorReset
	case "FAILED":
		return colorRed + "✗" + colorReset
	case "PROCESSING":
		return colorYellow + "⏳" + colorReset
	case "QUEUED":
		return colorCyan + "◯" + colorReset
	default:
		return "•"
	}
}

func colorizeStatus(status string) string {
	icon := statusIcon(status)
	switch status {
	case "SUCCEEDED":
		return icon + " " + colorGreen + status + colorReset
	case "FAILED":
		return icon + " " + colorRed + status + colorReset
	case "PROCESSING":
		return icon + " " + colorYellow + status + colorReset
	case "QUEUED":
		return icon + " " + colorCyan + status + colorReset
	default:
		return status
	}
}

func formatTimeWithRelative(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	relative := relativeTime(*t)
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relative, colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
