// Package source provides fetchers for the knowledge table: a local CSV
// file and a published CSV URL (e.g. a Google Sheets export link). Both
// yield header-keyed rows; the knowledge store does not care which one
// backs it.
package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// parseCSV decodes CSV content into header-keyed rows. The first record
// is the header. Records shorter than the header are padded with empty
// strings so ragged exports do not fail the whole fetch.
func parseCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("source: read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("source: read record: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
