package matrixio

import (
	"context"
	"encoding/csv"
	"os"

	"authscreen/domain/survey"
	"authscreen/internal/errors"
)

// CSVSource reads the items and responses tables from two CSV files
type CSVSource struct {
	itemsPath     string
	responsesPath string
}

// NewCSVSource targets the given file paths
func NewCSVSource(itemsPath, responsesPath string) *CSVSource {
	return &CSVSource{itemsPath: itemsPath, responsesPath: responsesPath}
}

// ReadMatrix loads and validates both tables
func (s *CSVSource) ReadMatrix(_ context.Context) (*survey.ResponseMatrix, error) {
	itemRows, err := readCSV(s.itemsPath)
	if err != nil {
		return nil, err
	}
	responseRows, err := readCSV(s.responsesPath)
	if err != nil {
		return nil, err
	}
	return buildMatrix(itemRows, responseRows)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	// Rows may omit trailing missing responses.
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return rows, nil
}
