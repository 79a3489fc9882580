// Package csvio loads sentence columns from tabular files and writes
// perplexity columns back.
package csvio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// PerplexityHeader is the name of the column appended to scored files.
const PerplexityHeader = "Perplexity"

// metadata sheets that never hold the data table
var skipSheets = map[string]bool{
	"info":     true,
	"metadata": true,
	"about":    true,
	"readme":   true,
	"notes":    true,
}

// LoadColumn returns the values of the named column across all data rows, in
// row order. CSV and TSV files use the given delimiter (.tsv forces a tab);
// .xlsx files are read from the first non-metadata sheet.
func LoadColumn(path, column, delimiter string) ([]string, error) {
	header, rows, err := readTable(path, delimiter)
	if err != nil {
		return nil, err
	}

	idx := columnIndex(header, column)
	if idx < 0 {
		return nil, fmt.Errorf("the %q column does not exist in %s; a %q header is needed to calculate perplexity", column, path, column)
	}

	values := make([]string, 0, len(rows))
	for i, row := range rows {
		if idx >= len(row) {
			return nil, fmt.Errorf("row %d of %s has %d fields, column %q is missing", i, path, len(row), column)
		}
		values = append(values, row[idx])
	}
	return values, nil
}

// AppendColumn rewrites the file in place with a trailing Perplexity column.
// The file is re-read as rows; sentences and perplexities must align one per
// data row or the rewrite is rejected. Each written row is logged with its
// index, sentence and score.
func AppendColumn(path string, sentences []string, perplexities []float64, delimiter string) error {
	if len(sentences) != len(perplexities) {
		return fmt.Errorf("have %d sentences but %d perplexities, refusing to write misaligned rows", len(sentences), len(perplexities))
	}

	header, rows, err := readTable(path, delimiter)
	if err != nil {
		return err
	}
	if len(rows) != len(perplexities) {
		return fmt.Errorf("%s has %d data rows but %d perplexities were computed", path, len(rows), len(perplexities))
	}

	log.Info().Msg("Writing perplexity by row")
	for i := range rows {
		log.Info().
			Int("index", i).
			Str("sentence", sentences[i]).
			Float64("perplexity", perplexities[i]).
			Msg("Scored row")
	}

	if isExcel(path) {
		return appendColumnExcel(path, header, perplexities)
	}
	return writeCSV(path, header, rows, perplexities, delimiterRune(path, delimiter))
}

func readTable(path, delimiter string) (header []string, rows [][]string, err error) {
	if isExcel(path) {
		return readTableExcel(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = delimiterRune(path, delimiter)
	reader.LazyQuotes = true

	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%s is empty, no header row", path)
	}
	return all[0], all[1:], nil
}

func writeCSV(path string, header []string, rows [][]string, perplexities []float64, comma rune) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	writer.Comma = comma

	if err := writer.Write(append(append([]string{}, header...), PerplexityHeader)); err != nil {
		return err
	}
	for i, row := range rows {
		out := append(append([]string{}, row...), formatScore(perplexities[i]))
		if err := writer.Write(out); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func readTableExcel(path string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheet, err := dataSheet(f)
	if err != nil {
		return nil, nil, err
	}

	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("sheet %q of %s is empty, no header row", sheet, path)
	}

	header := all[0]
	rows := all[1:]
	// GetRows drops trailing empty cells; pad back to the header width.
	for i := range rows {
		for len(rows[i]) < len(header) {
			rows[i] = append(rows[i], "")
		}
	}
	return header, rows, nil
}

func appendColumnExcel(path string, header []string, perplexities []float64) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheet, err := dataSheet(f)
	if err != nil {
		return err
	}

	col := len(header) + 1
	cell, err := excelize.CoordinatesToCellName(col, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, PerplexityHeader); err != nil {
		return err
	}
	for i, ppl := range perplexities {
		cell, err := excelize.CoordinatesToCellName(col, i+2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, ppl); err != nil {
			return err
		}
	}
	return f.Save()
}

func dataSheet(f *excelize.File) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	for _, sheet := range sheets {
		if !skipSheets[strings.ToLower(sheet)] {
			return sheet, nil
		}
	}
	return sheets[len(sheets)-1], nil
}

func columnIndex(header []string, column string) int {
	for i, h := range header {
		if h == column {
			return i
		}
	}
	return -1
}

func isExcel(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

func delimiterRune(path, delimiter string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	for _, r := range delimiter {
		return r
	}
	return ','
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
