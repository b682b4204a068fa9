// Package submission writes predicted scores into a copy of the sample
// submission template.
package submission

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"gonum.org/v1/gonum/mat"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/diskspace"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

// Template is a parsed sample submission: an id column followed by
// placeholder score columns.
type Template struct {
	Header []string
	Rows   [][]string
}

// Summary describes a written submission.
type Summary struct {
	Path    string
	Rows    int
	Columns []string
}

// LoadTemplate reads the sample submission at path.
func LoadTemplate(path string) (*Template, error) {
	f, err := os.Open(path) //nolint:gosec // G304: template path comes from configuration
	if err != nil {
		return nil, errors.New(err).
			Component("submission").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	defer f.Close()

	tpl, err := ReadTemplate(f)
	if err != nil {
		return nil, errors.New(err).
			Component("submission").
			Category(errors.CategorySubmission).
			FileContext(path, 0).
			Build()
	}
	return tpl, nil
}

// ReadTemplate parses a template from r.
func ReadTemplate(r io.Reader) (*Template, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.Newf("template is empty").Category(errors.CategorySubmission).Build()
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return &Template{Header: header, Rows: records[1:]}, nil
}

// Fill returns the template records with every column after the first
// replaced by the scores of the matching row. Score columns keep the
// template's header names; surplus placeholder columns are dropped. Header
// names are not checked against the scores.
func (t *Template) Fill(scores *mat.Dense) ([][]string, error) {
	rows, cols := scores.Dims()
	if rows != len(t.Rows) {
		return nil, errors.Newf("template has %d rows but there are %d predictions", len(t.Rows), rows).
			Component("submission").
			Category(errors.CategorySubmission).
			Context("template_rows", len(t.Rows)).
			Context("prediction_rows", rows).
			Build()
	}
	if len(t.Header) < 1+cols {
		return nil, errors.Newf("template has %d score columns, need %d", len(t.Header)-1, cols).
			Component("submission").
			Category(errors.CategorySubmission).
			Context("header", strings.Join(t.Header, ",")).
			Build()
	}

	out := make([][]string, 0, rows+1)
	out = append(out, append([]string(nil), t.Header[:1+cols]...))
	for i, record := range t.Rows {
		line := make([]string, 1+cols)
		line[0] = record[0]
		for j := range cols {
			line[1+j] = strconv.FormatFloat(scores.At(i, j), 'f', -1, 64)
		}
		out = append(out, line)
	}
	return out, nil
}

// Write fills the template at templatePath with scores and writes the result
// to outputPath. The output is written to a temporary file and renamed while
// an advisory lock on outputPath+".lock" is held.
func Write(templatePath, outputPath string, scores *mat.Dense) (*Summary, error) {
	start := time.Now()

	tpl, err := LoadTemplate(templatePath)
	if err != nil {
		return nil, err
	}
	records, err := tpl.Fill(scores)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fileError(err, dir)
	}
	if err := diskspace.Ensure(dir, csvSize(records)); err != nil {
		return nil, err
	}

	lock := flock.New(outputPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fileError(err, outputPath+".lock")
	}
	if !locked {
		return nil, errors.Newf("submission %s is being written by another process", outputPath).
			Component("submission").
			Category(errors.CategorySubmission).
			Build()
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			GetLogger().Warn("failed to release submission lock", logger.Error(err))
		}
	}()

	tmp, err := os.CreateTemp(dir, "submission-*.csv")
	if err != nil {
		return nil, fileError(err, dir)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		return nil, fileError(err, tmpName)
	}
	if err := tmp.Close(); err != nil {
		return nil, fileError(err, tmpName)
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		return nil, fileError(err, outputPath)
	}

	summary := &Summary{Path: outputPath, Rows: len(records) - 1, Columns: records[0]}
	GetLogger().Info("submission written",
		logger.String("path", outputPath),
		logger.Int("rows", summary.Rows),
		logger.String("columns", strings.Join(summary.Columns, ",")),
		logger.Duration("elapsed", time.Since(start)))
	return summary, nil
}

// csvSize bounds the encoded size of records: every field quoted, plus separators.
func csvSize(records [][]string) uint64 {
	var n uint64
	for _, rec := range records {
		for _, field := range rec {
			n += uint64(2*len(field) + 3)
		}
		n += 2
	}
	return n
}

func fileError(err error, path string) error {
	return errors.New(err).
		Component("submission").
		Category(errors.CategoryFileIO).
		FileContext(path, 0).
		Build()
}
