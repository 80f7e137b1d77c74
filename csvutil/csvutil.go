// Package csvutil reads CSV files into header-keyed rows through the
// transparent opener, so compressed and remote CSVs work the same as
// plain local ones.
package csvutil

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/egaebel-mixpanel/evals"
)

// Read decodes CSV rows from r into maps keyed by column name. When
// fieldnames are given they name the columns and the first row is data;
// otherwise the first row is the header.
func Read(r io.Reader, fieldnames ...string) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header := fieldnames
	var rows []map[string]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, fmt.Errorf("csvutil: %w", err)
		}

		if header == nil {
			header = record
			continue
		}

		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
}

// ReadFile opens path through o (data-root fallback and codec suffix
// included) and decodes it as CSV.
func ReadFile(ctx context.Context, o *evals.Opener, path string, fieldnames ...string) ([]map[string]string, error) {
	rc, err := o.OpenRead(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return Read(rc, fieldnames...)
}
