package runs

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/conf"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/datastore"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
)

// Command creates the runs command, which reads the run journal.
func Command(settings *conf.Settings) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List journaled training runs",
		Long: `Without arguments, list the most recent runs in the journal. With a run id,
print that run's configuration and its per-epoch history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(settings)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				run, err := store.GetRun(args[0])
				if err != nil {
					return err
				}
				printRun(cmd.OutOrStdout(), run)
				return nil
			}

			list, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), list)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list, 0 for all")

	return cmd
}

func open(settings *conf.Settings) (datastore.Interface, error) {
	if !settings.Datastore.Enabled {
		return nil, errors.Newf("the run journal is disabled, set datastore.enabled to true").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	store, err := datastore.New(settings)
	if err != nil {
		return nil, err
	}
	if err := store.Open(); err != nil {
		return nil, err
	}
	return store, nil
}

func printRuns(w io.Writer, list []datastore.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"Run", "Started", "Status", "Backbone", "Epochs", "Best AUC", "Best Epoch", "Elapsed"})
	for i := range list {
		r := &list[i]
		t.AppendRow(table.Row{
			r.ID,
			r.StartedAt.Format(time.DateTime),
			r.Status,
			r.Backbone,
			r.Epochs,
			formatFloat(r.BestAUC),
			r.BestEpoch,
			elapsed(r),
		})
	}
	t.Render()
}

func printRun(w io.Writer, r *datastore.Run) {
	fmt.Fprintf(w, "Run:        %s\n", r.ID)
	fmt.Fprintf(w, "Status:     %s\n", r.Status)
	fmt.Fprintf(w, "Started:    %s (%s)\n", r.StartedAt.Format(time.DateTime), elapsed(r))
	fmt.Fprintf(w, "Backbone:   %s on %s\n", r.Backbone, r.Device)
	fmt.Fprintf(w, "Training:   %d epochs, batch %d, lr %g, seed %d\n", r.Epochs, r.BatchSize, r.LearningRate, r.Seed)
	fmt.Fprintf(w, "Rows:       train %d, val %d, test %d\n", r.TrainRows, r.ValRows, r.TestRows)
	fmt.Fprintf(w, "Best:       AUC %s at epoch %d\n", formatFloat(r.BestAUC), r.BestEpoch)
	if r.SubmissionPath != "" {
		fmt.Fprintf(w, "Submission: %s\n", r.SubmissionPath)
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Error:      %s\n", r.Error)
	}

	if len(r.History) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"Epoch", "Train Loss", "Val Loss", "Val AUC", "Best", "Duration"})
	for _, e := range r.History {
		best := ""
		if e.Improved {
			best = "*"
		}
		t.AppendRow(table.Row{
			e.Epoch,
			formatFloat(e.TrainLoss),
			formatFloat(e.ValLoss),
			formatFloat(e.ValAUC),
			best,
			(time.Duration(e.DurationMs) * time.Millisecond).String(),
		})
	}
	t.Render()
}

func formatFloat(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.5f", *v)
}

func elapsed(r *datastore.Run) string {
	if r.FinishedAt == nil {
		return "running"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
}
