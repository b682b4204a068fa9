// Package manifest reads the train and test CSV manifests and splits the
// labelled manifest into train and validation partitions.
package manifest

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/conf"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

const (
	ColumnPath  = "path"
	ColumnLabel = "label"
	ColumnID    = "id"
)

// Row is one manifest entry. Label is empty for unlabelled manifests.
type Row struct {
	ID    string
	Path  string
	Label string
	// Extra keeps any other columns keyed by header name.
	Extra map[string]string
}

// Manifest is an ordered set of rows read from one CSV file.
type Manifest struct {
	Source string
	Header []string
	Rows   []Row
}

// Len returns the number of rows.
func (m *Manifest) Len() int { return len(m.Rows) }

// Paths returns the audio paths in manifest order.
func (m *Manifest) Paths() []string {
	paths := make([]string, len(m.Rows))
	for i := range m.Rows {
		paths[i] = m.Rows[i].Path
	}
	return paths
}

// Labels encodes every row label. It fails on the first row rejected by the encoder.
func (m *Manifest) Labels(strict bool) ([]int, error) {
	labels := make([]int, len(m.Rows))
	for i := range m.Rows {
		l, err := EncodeLabel(m.Rows[i].Label, strict)
		if err != nil {
			return nil, errors.New(err).
				Component("manifest").
				Category(errors.CategoryManifest).
				Context("row", i+1).
				Context("source", m.Source).
				Build()
		}
		labels[i] = l
	}
	return labels, nil
}

// EncodeLabel maps "fake" to 0 and every other string to 1. In strict mode
// only "fake" and "real" are accepted.
func EncodeLabel(label string, strict bool) (int, error) {
	if label == conf.LabelFake {
		return 0, nil
	}
	if strict && label != conf.LabelReal {
		return 0, errors.Newf("unknown label %q", label).
			Component("manifest").
			Category(errors.CategoryValidation).
			Build()
	}
	return 1, nil
}

// Load reads a manifest CSV with a header row. A path column is required;
// a label column is required when withLabels is true.
func Load(path string, withLabels bool) (*Manifest, error) {
	f, err := os.Open(path) //nolint:gosec // G304: manifest path comes from configuration
	if err != nil {
		return nil, errors.New(err).
			Component("manifest").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	defer f.Close()

	m, err := Read(f, withLabels)
	if err != nil {
		return nil, err
	}
	m.Source = path

	GetLogger().Debug("manifest loaded",
		logger.String("path", path),
		logger.Int("rows", m.Len()),
		logger.Bool("labelled", withLabels))

	return m, nil
}

// Read parses a manifest from r.
func Read(r io.Reader, withLabels bool) (*Manifest, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		return nil, errors.New(err).
			Component("manifest").
			Category(errors.CategoryManifest).
			Context("operation", "read-header").
			Build()
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	pathCol, ok := index[ColumnPath]
	if !ok {
		return nil, missingColumn(ColumnPath, header)
	}
	labelCol, hasLabel := index[ColumnLabel]
	if withLabels && !hasLabel {
		return nil, missingColumn(ColumnLabel, header)
	}
	idCol, hasID := index[ColumnID]

	m := &Manifest{Header: header}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(err).
				Component("manifest").
				Category(errors.CategoryManifest).
				Context("line", line).
				Build()
		}

		row := Row{Path: record[pathCol]}
		if hasID {
			row.ID = record[idCol]
		}
		if withLabels && hasLabel {
			row.Label = strings.TrimSpace(record[labelCol])
		}
		for i, name := range header {
			if i == pathCol || (hasID && i == idCol) || (hasLabel && i == labelCol) {
				continue
			}
			if row.Extra == nil {
				row.Extra = make(map[string]string)
			}
			row.Extra[name] = record[i]
		}
		m.Rows = append(m.Rows, row)
	}

	return m, nil
}

func missingColumn(name string, header []string) error {
	return errors.Newf("manifest has no %q column", name).
		Component("manifest").
		Category(errors.CategoryManifest).
		Context("header", strings.Join(header, ",")).
		Build()
}
