package refdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jwalitptl/medbot/pkg/textutil"
)

var errEmptyTable = errors.New("table has no header row")

// table is a header-addressed view of a CSV file or the first sheet of a
// workbook. Headers are normalized; the first of duplicate headers wins.
type table struct {
	header []string
	rows   [][]string
	cols   map[string]int
}

func newTable(records [][]string) (*table, error) {
	if len(records) == 0 {
		return nil, errEmptyTable
	}

	t := &table{
		header: make([]string, len(records[0])),
		rows:   records[1:],
		cols:   make(map[string]int, len(records[0])),
	}
	for i, h := range records[0] {
		h = textutil.NormalizeHeader(h)
		t.header[i] = h
		if _, dup := t.cols[h]; !dup && h != "" {
			t.cols[h] = i
		}
	}
	return t, nil
}

func (t *table) has(col string) bool {
	_, ok := t.cols[col]
	return ok
}

// get returns the trimmed cell, treating pandas' "nan" as empty.
func (t *table) get(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok {
		return ""
	}
	return cell(row, i)
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[i])
	if strings.EqualFold(v, "nan") {
		return ""
	}
	return v
}

// columnsWithPrefix lists header indexes whose name starts with prefix.
func (t *table) columnsWithPrefix(prefix string) []int {
	var idx []int
	for i, h := range t.header {
		if strings.HasPrefix(h, prefix) {
			idx = append(idx, i)
		}
	}
	return idx
}

func (t *table) require(cols ...string) error {
	for _, c := range cols {
		if !t.has(c) {
			return fmt.Errorf("missing %q column", c)
		}
	}
	return nil
}

func readTable(path string) (*table, error) {
	var (
		records [][]string
		err     error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		records, err = readWorkbook(path)
	case ".csv", ".txt":
		records, err = readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported table format %q", ext)
	}
	if err != nil {
		return nil, err
	}
	return newTable(records)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return records, nil
}

func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s has no sheets", filepath.Base(path))
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}
