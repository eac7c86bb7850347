package stems

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// compatibleCell is the cell value that marks a family pair as compatible.
const compatibleCell = "YES"

// ErrEmptyMatrix is returned when a matrix source has no family columns.
var ErrEmptyMatrix = errors.New("compatibility matrix has no families")

// Matrix is a read-only Family x Family compatibility lookup. It is not
// assumed symmetric; callers query with (original family, candidate family).
type Matrix struct {
	cells map[Family]map[Family]bool
}

// NewMatrix builds a matrix from explicit rows. Pairs absent from rows are
// incompatible.
func NewMatrix(rows map[Family]map[Family]bool) *Matrix {
	cells := make(map[Family]map[Family]bool, len(rows))
	for row, cols := range rows {
		copied := make(map[Family]bool, len(cols))
		for col, ok := range cols {
			copied[col] = ok
		}
		cells[row] = copied
	}
	return &Matrix{cells: cells}
}

// Compatible reports whether a stem of family row may be replaced by a stem
// of family col. Missing rows or columns are incompatible.
func (m *Matrix) Compatible(row, col Family) bool {
	if m == nil {
		return false
	}
	cols, ok := m.cells[row]
	if !ok {
		return false
	}
	return cols[col]
}

// Families returns the row labels in sorted order.
func (m *Matrix) Families() []Family {
	if m == nil {
		return nil
	}
	out := make([]Family, 0, len(m.cells))
	for f := range m.cells {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseMatrix reads a row/column labelled CSV table. The header row holds the
// column families after a leading row-label cell; each following row starts
// with its row family. Cells equal to "YES" mark compatible pairs.
func ParseMatrix(r io.Reader) (*Matrix, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyMatrix
		}
		return nil, fmt.Errorf("read matrix header: %w", err)
	}
	if len(header) < 2 {
		return nil, ErrEmptyMatrix
	}
	columns := make([]Family, len(header)-1)
	for i, name := range header[1:] {
		columns[i] = Family(strings.TrimSpace(name))
	}

	cells := make(map[Family]map[Family]bool)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read matrix line %d: %w", line, err)
		}
		if len(record) == 0 {
			continue
		}
		row := Family(strings.TrimSpace(record[0]))
		if !row.Known() {
			continue
		}
		cols := make(map[Family]bool, len(columns))
		for i, col := range columns {
			if !col.Known() || i+1 >= len(record) {
				continue
			}
			cols[col] = strings.TrimSpace(record[i+1]) == compatibleCell
		}
		cells[row] = cols
	}
	return &Matrix{cells: cells}, nil
}

// LoadMatrix reads the compatibility matrix CSV at path.
func LoadMatrix(path string) (*Matrix, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open compatibility matrix: %w", err)
	}
	defer file.Close()

	matrix, err := ParseMatrix(file)
	if err != nil {
		return nil, fmt.Errorf("parse compatibility matrix %s: %w", path, err)
	}
	return matrix, nil
}
