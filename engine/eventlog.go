package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ftahirops/disktriage/model"
)

// RecordLogWriter appends disk records to a JSONL file.
type RecordLogWriter struct {
	path string
}

// NewRecordLogWriter creates a writer for the given path.
func NewRecordLogWriter(path string) *RecordLogWriter {
	return &RecordLogWriter{path: path}
}

// Write appends records to the log file, one per line.
func (w *RecordLogWriter) Write(recs []*model.DiskErrorRecord) error {
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// ReadRecordLog reads all records from a JSONL file.
func ReadRecordLog(path string) ([]*model.DiskErrorRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var recs []*model.DiskErrorRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024) // raw log lines make records large
	for scanner.Scan() {
		var r model.DiskErrorRecord
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			continue // skip malformed lines
		}
		recs = append(recs, &r)
	}
	return recs, scanner.Err()
}

// WriteMsgpack encodes records as a single msgpack array.
func WriteMsgpack(w io.Writer, recs []*model.DiskErrorRecord) error {
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("msgpack encode: %w", err)
	}
	return nil
}

// ReadMsgpack decodes records written by WriteMsgpack.
func ReadMsgpack(r io.Reader) ([]*model.DiskErrorRecord, error) {
	var recs []*model.DiskErrorRecord
	if err := msgpack.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("msgpack decode: %w", err)
	}
	return recs, nil
}
