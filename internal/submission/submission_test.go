package submission

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample_submission.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
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

func TestWrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		template   string
		wantHeader []string
	}{
		{
			name:       "two placeholder columns",
			template:   "id,fake,real\nTEST_000,0,0\nTEST_001,0,0\nTEST_002,0,0\n",
			wantHeader: []string{"id", "fake", "real"},
		},
		{
			name:       "surplus placeholder columns are dropped",
			template:   "id,a,b,c\nTEST_000,0,0,0\nTEST_001,0,0,0\nTEST_002,0,0,0\n",
			wantHeader: []string{"id", "a", "b"},
		},
		{
			name:       "byte order mark",
			template:   "\ufeffid,fake,real\nTEST_000,0,0\nTEST_001,0,0\nTEST_002,0,0\n",
			wantHeader: []string{"id", "fake", "real"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tpl := writeTemplate(t, tt.template)
			out := filepath.Join(t.TempDir(), "out", "submission.csv")
			scores := mat.NewDense(3, 2, []float64{0.25, -1.5, 3, 0, 0.125, 0.875})

			summary, err := Write(tpl, out, scores)
			require.NoError(t, err)
			assert.Equal(t, 3, summary.Rows)

			records := readCSV(t, out)
			require.Len(t, records, 4)
			assert.Equal(t, tt.wantHeader, records[0])
			assert.Equal(t, []string{"TEST_000", "0.25", "-1.5"}, records[1])
			assert.Equal(t, []string{"TEST_001", "3", "0"}, records[2])
			assert.Equal(t, []string{"TEST_002", "0.125", "0.875"}, records[3])
		})
	}
}

func TestWriteRowMismatch(t *testing.T) {
	t.Parallel()

	tpl := writeTemplate(t, "id,fake,real\nTEST_000,0,0\n")
	out := filepath.Join(t.TempDir(), "submission.csv")

	_, err := Write(tpl, out, mat.NewDense(2, 2, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 rows but there are 2 predictions")
	assert.NoFileExists(t, out)
}

func TestWriteTooFewColumns(t *testing.T) {
	t.Parallel()

	tpl := writeTemplate(t, "id,score\nTEST_000,0\n")
	_, err := Write(tpl, filepath.Join(t.TempDir(), "submission.csv"), mat.NewDense(1, 2, nil))
	assert.Error(t, err)
}

func TestWriteMissingTemplate(t *testing.T) {
	t.Parallel()

	_, err := Write(filepath.Join(t.TempDir(), "missing.csv"), filepath.Join(t.TempDir(), "s.csv"), mat.NewDense(1, 2, nil))
	assert.Error(t, err)
}

func TestWriteLocked(t *testing.T) {
	t.Parallel()

	tpl := writeTemplate(t, "id,fake,real\nTEST_000,0,0\n")
	out := filepath.Join(t.TempDir(), "submission.csv")

	held := flock.New(out + ".lock")
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer held.Unlock()

	_, err = Write(tpl, out, mat.NewDense(1, 2, nil))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "another process"))
}

func TestWriteOverwrites(t *testing.T) {
	t.Parallel()

	tpl := writeTemplate(t, "id,fake,real\nTEST_000,0,0\n")
	out := filepath.Join(t.TempDir(), "submission.csv")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0o600))

	_, err := Write(tpl, out, mat.NewDense(1, 2, []float64{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"id", "fake", "real"}, {"TEST_000", "1", "2"}}, readCSV(t, out))
}

func TestCSVSizeBoundsEncoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		records [][]string
	}{
		{name: "plain", records: [][]string{{"id", "fake", "real"}, {"TEST_000", "0.25", "0.75"}}},
		{name: "quoted fields", records: [][]string{{"id", "a,b"}, {`say "hi"`, "\"\"\""}}},
		{name: "empty fields", records: [][]string{{"", ""}, {"x", ""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			w := csv.NewWriter(&buf)
			require.NoError(t, w.WriteAll(tt.records))
			assert.GreaterOrEqual(t, csvSize(tt.records), uint64(buf.Len()))
		})
	}
}
