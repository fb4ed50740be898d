package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kerbaras/otakulog/pkg/data"
)

var jobsLimit int

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Show recent enrichment jobs",
	Long:  "Display the most recent rows of the job ledger, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		_, db, log := setup()
		defer db.Close()
		defer log.Sync()

		jobs, err := data.NewStore(db).ListJobs(context.Background(), jobsLimit)
		cobra.CheckErr(err)

		if len(jobs) == 0 {
			fmt.Println("The job ledger is empty.")
			return
		}

		t := newTable("Job", "Queue", "Status", "Queued", "Detail")
		for _, j := range jobs {
			detail := j.Result
			if j.Status == data.JobFailed {
				detail = j.Error
			}
			t.Row(
				truncateString(j.ID, 30),
				j.Queue,
				string(j.Status),
				j.CreatedAt.Format("Jan 2 15:04:05"),
				truncateString(detail, 40),
			)
		}
		fmt.Println(t)
	},
}

func init() {
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 50, "maximum rows to show")
}
