// Package jsonout persists authenticity records as a JSON document, the
// default sink when no database is configured. Pointer fields marshal as
// JSON null, preserving the missing/zero distinction.
package jsonout

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"authscreen/domain/core"
	"authscreen/domain/screening"
	"authscreen/internal/errors"
)

// document is the on-disk shape: run identity plus all records
type document struct {
	RunID     string                         `json:"run_id"`
	WrittenAt core.Timestamp                 `json:"written_at"`
	Records   []screening.AuthenticityRecord `json:"records"`
}

// Writer implements ports.RecordRepository against a single JSON file
type Writer struct {
	path string
}

// NewWriter targets the given file path
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// SaveRecords writes the full record set atomically (temp file + rename)
func (w *Writer) SaveRecords(_ context.Context, runID string, records []screening.AuthenticityRecord) error {
	doc := document{RunID: runID, WrittenAt: core.Now(), Records: records}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode records")
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "output dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "temp output")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write records")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp output")
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return errors.Wrapf(err, "publish %s", w.path)
	}
	return nil
}
