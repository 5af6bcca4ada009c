package convert

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// zipMagic starts every XLSX file.
	zipMagic = []byte("PK\x03\x04")
	// oleMagic starts legacy XLS files and password protected workbooks.
	oleMagic = []byte("\xd0\xcf\x11\xe0\xa1\xb1\x1a\xe1")
)

// ReadRows returns the cells of a spreadsheet. XLSX and XLS workbooks are read from their first
// sheet, with numbers as stored rather than as displayed. Anything else is decoded as text with the encoding candidates and read as CSV, with comma,
// semicolon or tab as delimiter, whichever occurs most often in the first line. The second
// return value names the encoding that was used for CSV input and is empty for workbooks.
func ReadRows(data []byte, encodings []string) ([][]string, string, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		rows, err := readWorkbook(data)
		return rows, "", err
	case bytes.HasPrefix(data, oleMagic):
		rows, err := readLegacyWorkbook(data)
		return rows, "", err
	}
	text, encoding, err := Decode(data, encodings)
	if err != nil {
		return nil, "", err
	}
	rows, err := readCSV(text)
	if err != nil {
		return nil, "", err
	}
	return rows, encoding, nil
}

func readWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyInput
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(text string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = csvDelimiter(text)
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	return rows, nil
}

func csvDelimiter(text string) rune {
	first, _, _ := strings.Cut(text, "\n")
	delimiter, best := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := strings.Count(first, string(d)); n > best {
			delimiter, best = d, n
		}
	}
	return delimiter
}
