package trainer

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderReports formats the epoch reports as a table, marking the epochs
// that replaced the best model.
func RenderReports(reports []EpochReport) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	tw.AppendHeader(table.Row{"Epoch", "Train loss", "Val loss", "Val AUC", "Best", "Time"})

	for _, r := range reports {
		best := ""
		if r.Improved {
			best = "*"
		}
		tw.AppendRow(table.Row{
			r.Epoch,
			fmt.Sprintf("%.5f", r.TrainLoss),
			fmt.Sprintf("%.5f", r.ValLoss),
			fmt.Sprintf("%.5f", r.ValAUC),
			best,
			r.Duration.Round(time.Millisecond).String(),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignCenter},
		{Number: 6, Align: text.AlignRight},
	})
	return tw.Render()
}
