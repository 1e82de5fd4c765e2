package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want csv or json)", s)
	}
}

// WriteCSV writes t with its header row.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("failed to write %s as CSV: %w", t.Name, err)
	}
	return nil
}

// WriteJSON writes the rows of t as an indented JSON array.
func WriteJSON(w io.Writer, t Table) error {
	b, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s to JSON: %w", t.Name, err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("failed to write %s as JSON: %w", t.Name, err)
	}
	return nil
}

// WriteDir writes every table to dir/<name>.<format> and returns the paths written.
func WriteDir(dir string, format Format, tables []Table) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	write := WriteCSV
	if format == FormatJSON {
		write = WriteJSON
	}

	paths := make([]string, 0, len(tables))
	for _, t := range tables {
		path := filepath.Join(dir, t.Name+"."+string(format))
		f, err := os.Create(path)
		if err != nil {
			return paths, fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := write(f, t); err != nil {
			f.Close()
			return paths, err
		}
		if err := f.Close(); err != nil {
			return paths, fmt.Errorf("failed to close %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
