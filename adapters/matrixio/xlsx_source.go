package matrixio

import (
	"context"

	"github.com/xuri/excelize/v2"

	"authscreen/domain/survey"
	"authscreen/internal/errors"
)

// Workbook sheet names expected by the XLSX source.
const (
	SheetItems     = "Items"
	SheetResponses = "Responses"
)

// XLSXSource reads both tables from one Excel workbook, the format the
// upstream survey platform exports.
type XLSXSource struct {
	path string
}

// NewXLSXSource targets the given workbook path
func NewXLSXSource(path string) *XLSXSource {
	return &XLSXSource{path: path}
}

// ReadMatrix loads the Items and Responses sheets and validates them
func (s *XLSXSource) ReadMatrix(_ context.Context) (*survey.ResponseMatrix, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "open workbook %s", s.path)
	}
	defer f.Close()

	itemRows, err := f.GetRows(SheetItems)
	if err != nil {
		return nil, errors.Wrapf(err, "sheet %s", SheetItems)
	}
	responseRows, err := f.GetRows(SheetResponses)
	if err != nil {
		return nil, errors.Wrapf(err, "sheet %s", SheetResponses)
	}
	return buildMatrix(itemRows, responseRows)
}
