package train

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/conf"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/pipeline"
)

// Command creates the train command, which runs the full pipeline and writes
// the submission.
func Command(settings *conf.Settings) *cobra.Command {
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the classifier and write the submission",
		Long: `Extract mel spectrograms for the train and test manifests, train the
classification head with validation AUC model selection and write scores for
every test row into a copy of the sample submission.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := []pipeline.Option{pipeline.WithReportWriter(cmd.OutOrStdout())}
			if noProgress {
				opts = append(opts, pipeline.WithProgress(false, cmd.ErrOrStderr()))
			}

			result, err := pipeline.Run(cmd.Context(), settings, opts...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: best val AUC %.5f at epoch %d, wrote %d rows to %s\n",
				result.RunID, result.BestAUC, result.BestEpoch,
				result.Submission.Rows, result.Submission.Path)
			return nil
		},
	}

	setupFlags(cmd)
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable extraction progress bars")

	return cmd
}

func setupFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntP("epochs", "e", 0, "Number of training epochs")
	flags.IntP("batch-size", "b", 0, "Mini-batch size")
	flags.Float64("lr", 0, "Adam learning rate")
	flags.Uint64("seed", 0, "Seed for the split, head init and shuffling")
	flags.Float64("val-fraction", 0, "Fraction of the labelled manifest held out for validation")
	flags.Bool("softmax", false, "Write probabilities instead of raw logits")
	flags.Bool("snapshot-best", false, "Keep a copy of the best head instead of a live reference")

	conf.MustBindFlags(flags, map[string]string{
		"epochs":        "train.epochs",
		"batch-size":    "train.batchsize",
		"lr":            "train.learningrate",
		"seed":          "train.seed",
		"val-fraction":  "train.valfraction",
		"softmax":       "predict.softmax",
		"snapshot-best": "train.snapshotbest",
	})
}
