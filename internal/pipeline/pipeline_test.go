package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/conf"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/datastore"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/myaudio"
)

const testRate = 16000

func tone(freq float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.4 * math.Sin(2*math.Pi*freq*float64(i)/testRate))
	}
	return out
}

// writeCorpus lays out a small competition folder: ten labelled clips, four
// test clips, the manifests and a sample submission.
func writeCorpus(t *testing.T, root string) {
	t.Helper()
	for _, dir := range []string{"train", "test"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}

	var train strings.Builder
	train.WriteString("id,path,label\n")
	for i := range 10 {
		label, freq := "real", 220.0
		if i%2 == 0 {
			label, freq = "fake", 1800.0
		}
		rel := fmt.Sprintf("./train/TRAIN_%03d.wav", i)
		require.NoError(t, myaudio.WriteWAV(filepath.Join(root, rel), tone(freq+float64(i)*10, testRate/4), testRate))
		fmt.Fprintf(&train, "TRAIN_%03d,%s,%s\n", i, rel, label)
	}

	var test, template strings.Builder
	test.WriteString("id,path\n")
	template.WriteString("id,fake,real\n")
	for i := range 4 {
		rel := fmt.Sprintf("./test/TEST_%03d.wav", i)
		require.NoError(t, myaudio.WriteWAV(filepath.Join(root, rel), tone(300+float64(i)*400, testRate/5), testRate))
		fmt.Fprintf(&test, "TEST_%03d,%s\n", i, rel)
		fmt.Fprintf(&template, "TEST_%03d,0,0\n", i)
	}

	files := map[string]string{
		"train.csv":             train.String(),
		"test.csv":              test.String(),
		"sample_submission.csv": template.String(),
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(body), 0o644))
	}
}

func testSettings(root string) *conf.Settings {
	s := conf.Defaults()
	s.Paths.Root = root
	s.Paths.Output = filepath.Join(root, "out", "submission.csv")
	s.Audio.SampleRate = testRate
	s.Features.NFFT = 512
	s.Features.HopLength = 128
	s.Features.NMels = 32
	s.Features.Workers = 2
	s.Dataset.ImageSize = 32
	s.Train.Epochs = 2
	s.Train.BatchSize = 4
	s.Train.LearningRate = 1e-2
	return s
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestRunWritesSubmission(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeCorpus(t, root)
	settings := testSettings(root)
	settings.Telemetry.MetricsFile = filepath.Join(root, "metrics.prom")

	var report bytes.Buffer
	result, err := Run(context.Background(), settings,
		WithProgress(false, io.Discard),
		WithReportWriter(&report))
	require.NoError(t, err)

	assert.Len(t, result.RunID, 36)
	assert.Equal(t, 8, result.TrainRows)
	assert.Equal(t, 2, result.ValRows)
	assert.Equal(t, 4, result.TestRows)
	require.Len(t, result.Reports, 2)
	assert.Contains(t, report.String(), "Epoch [1], Train Loss : [")

	require.NotNil(t, result.Submission)
	assert.Equal(t, settings.Paths.Output, result.Submission.Path)
	assert.Equal(t, 4, result.Submission.Rows)

	records := readCSV(t, settings.Paths.Output)
	require.Len(t, records, 5)
	assert.Equal(t, []string{"id", "fake", "real"}, records[0])
	for i, rec := range records[1:] {
		require.Len(t, rec, 3)
		assert.Equal(t, fmt.Sprintf("TEST_%03d", i), rec[0], "test order is preserved")
	}

	prom, err := os.ReadFile(settings.Telemetry.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "fakevoice_train_epoch 2")
}

func TestRunSoftmaxScoresSumToOne(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeCorpus(t, root)
	settings := testSettings(root)
	settings.Train.Epochs = 1
	settings.Predict.Softmax = true

	result, err := Run(context.Background(), settings, WithProgress(false, io.Discard))
	require.NoError(t, err)
	require.Len(t, result.Reports, 1)
	require.NotNil(t, result.Submission)
	assert.Equal(t, 4, result.Submission.Rows)

	records := readCSV(t, settings.Paths.Output)
	require.Len(t, records, 1+4, "header plus one row per test clip")
	assert.Equal(t, []string{"id", "fake", "real"}, records[0])

	for i, rec := range records[1:] {
		require.Len(t, rec, 3, "id and two score columns")
		assert.Equal(t, fmt.Sprintf("TEST_%03d", i), rec[0], "ids follow the template")

		var sum float64
		for _, v := range rec[1:] {
			var f float64
			_, err := fmt.Sscan(v, &f)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, f, 0.0)
			assert.LessOrEqual(t, f, 1.0)
			sum += f
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestRunJournalsEpochs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeCorpus(t, root)
	settings := testSettings(root)
	settings.Datastore.Enabled = true
	settings.Datastore.SQLite.Path = filepath.Join(root, "runs.db")

	result, err := Run(context.Background(), settings, WithProgress(false, io.Discard))
	require.NoError(t, err)

	store, err := datastore.New(settings)
	require.NoError(t, err)
	require.NoError(t, store.Open())
	defer store.Close()

	run, err := store.GetRun(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusCompleted, run.Status)
	assert.Equal(t, 8, run.TrainRows)
	assert.Equal(t, 4, run.TestRows)
	assert.Equal(t, settings.Paths.Output, run.SubmissionPath)
	assert.Len(t, run.History, 2)
}

func TestRunFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(t *testing.T, root string)
		category errors.ErrorCategory
	}{
		{
			name: "missing train manifest",
			mutate: func(t *testing.T, root string) {
				t.Helper()
				require.NoError(t, os.Remove(filepath.Join(root, "train.csv")))
			},
			category: errors.CategoryFileIO,
		},
		{
			name: "missing audio file",
			mutate: func(t *testing.T, root string) {
				t.Helper()
				require.NoError(t, os.Remove(filepath.Join(root, "test", "TEST_002.wav")))
			},
			category: errors.CategoryFeature,
		},
		{
			name: "template row count mismatch",
			mutate: func(t *testing.T, root string) {
				t.Helper()
				require.NoError(t, os.WriteFile(filepath.Join(root, "sample_submission.csv"), []byte("id,fake,real\nTEST_000,0,0\n"), 0o644))
			},
			category: errors.CategorySubmission,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			writeCorpus(t, root)
			settings := testSettings(root)
			settings.Train.Epochs = 1
			tt.mutate(t, root)

			_, err := Run(context.Background(), settings, WithProgress(false, io.Discard))
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)

			_, statErr := os.Stat(settings.Paths.Output)
			assert.True(t, os.IsNotExist(statErr), "no submission is written on failure")
		})
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeCorpus(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, testSettings(root), WithProgress(false, io.Discard))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation), "got %v", err)
}
