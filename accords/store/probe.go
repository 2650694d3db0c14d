package store

import (
	"fmt"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// ParquetInfo describes a columnar file before it is materialized.
type ParquetInfo struct {
	Path    string   `json:"path"`
	Size    int64    `json:"size"`
	Rows    int64    `json:"rows"`
	Columns []string `json:"columns"`
}

// Missing returns the required columns the file lacks, compared
// case-insensitively.
func (p ParquetInfo) Missing(required ...string) []string {
	have := make(map[string]bool, len(p.Columns))
	for _, c := range p.Columns {
		have[strings.ToLower(c)] = true
	}
	var missing []string
	for _, r := range required {
		if !have[strings.ToLower(r)] {
			missing = append(missing, r)
		}
	}
	return missing
}

// ProbeParquet reads the footer of a parquet file: schema and row count.
// A file that is not valid parquet fails here rather than inside the engine.
func ProbeParquet(path string) (ParquetInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return ParquetInfo{}, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return ParquetInfo{}, err
	}

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return ParquetInfo{}, fmt.Errorf("not a parquet file: %w", err)
	}

	fields := pf.Schema().Fields()
	cols := make([]string, len(fields))
	for i, field := range fields {
		cols[i] = field.Name()
	}

	return ParquetInfo{
		Path:    path,
		Size:    st.Size(),
		Rows:    pf.NumRows(),
		Columns: cols,
	}, nil
}
