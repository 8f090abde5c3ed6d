package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/areduca/classbuilder/pkg/core"
)

// The snapshot is a JSON array of records, gzipped when the path ends in ".gz".

func isCompressed(path string) bool {
	return strings.HasSuffix(path, ".gz")
}

// writeSnapshot replaces the file at path atomically.
func writeSnapshot(path string, records []core.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".classes-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if records == nil {
		records = []core.Record{}
	}
	if isCompressed(path) {
		err = writeGzipJSON(tmp, records)
	} else {
		err = json.NewEncoder(tmp).Encode(records)
	}
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}

func writeGzipJSON(w io.Writer, records []core.Record) error {
	gzWriter := gzip.NewWriter(w)
	if err := json.NewEncoder(gzWriter).Encode(records); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}

// readSnapshot decodes the file at path. Records that do not decode are
// counted in skipped and left out. A missing file is an empty store.
func readSnapshot(path string) (records []core.Record, skipped int, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var r io.Reader = f
	if isCompressed(path) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, 0, err
		}
		defer gz.Close()
		r = gz
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	for _, msg := range raw {
		var rec core.Record
		if err := json.Unmarshal(msg, &rec); err != nil || rec.ID == "" {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}
