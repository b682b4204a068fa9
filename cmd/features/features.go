package features

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/conf"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/features"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/manifest"
)

// Command creates the features command, which extracts the mel spectrograms of
// a manifest and optionally renders them as PNG images.
func Command(settings *conf.Settings) *cobra.Command {
	var pngDir string
	var limit int

	cmd := &cobra.Command{
		Use:   "features [manifest.csv]",
		Short: "Extract and inspect mel spectrograms",
		Long: `Decode every clip listed in a manifest, compute its log-mel spectrogram and
print the shape and dB range of each. With --png the spectrograms are written
as grayscale images. The manifest defaults to the configured test manifest.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := settings.Paths.Resolve(settings.Paths.Test)
			if len(args) == 1 {
				path = args[0]
			}
			return run(cmd, settings, path, pngDir, limit)
		},
	}

	cmd.Flags().StringVar(&pngDir, "png", "", "Directory to write spectrogram images to")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Only process the first n rows")

	return cmd
}

func run(cmd *cobra.Command, settings *conf.Settings, path, pngDir string, limit int) error {
	m, err := manifest.Load(path, false)
	if err != nil {
		return err
	}
	if limit > 0 && limit < m.Len() {
		m.Rows = m.Rows[:limit]
	}

	extractor, err := features.NewExtractor(settings, features.WithProgress(false, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	set, err := extractor.Extract(cmd.Context(), m, false)
	if err != nil {
		return err
	}

	if pngDir != "" {
		if err := os.MkdirAll(pngDir, 0o755); err != nil {
			return errors.New(err).
				Component("features").
				Category(errors.CategoryFileIO).
				FileContext(pngDir, 0).
				Build()
		}
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"#", "ID", "Path", "Bands", "Frames", "Min dB", "Max dB"})

	for i, spec := range set.Features {
		row := m.Rows[i]
		bands, frames := spec.Shape()
		lo, hi := spec.MinMax()
		t.AppendRow(table.Row{i + 1, row.ID, row.Path, bands, frames, fmt.Sprintf("%.1f", lo), fmt.Sprintf("%.1f", hi)})

		if pngDir != "" {
			if err := features.WritePNG(filepath.Join(pngDir, imageName(i, row)), spec); err != nil {
				return err
			}
		}
	}
	t.Render()
	return nil
}

// imageName derives the PNG name from the row id, or the audio file name when
// the manifest has no id column.
func imageName(i int, row manifest.Row) string {
	name := row.ID
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(row.Path), filepath.Ext(row.Path))
	}
	if name == "" {
		name = fmt.Sprintf("row_%05d", i+1)
	}
	return name + ".png"
}
