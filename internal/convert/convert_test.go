package convert

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook creates an XLSX file in memory with the given rows on its first sheet.
func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// TestConvertTextToVCard runs the mixed example document through the pipeline. It expects two
// contacts, one via the pipe separator and one via the whitespace fallback, and one skipped line.
func TestConvertTextToVCard(t *testing.T) {
	report, err := Convert(Request{
		Source: FormatText,
		Target: FormatVCard,
		Data:   []byte("Alice|08123|alice@x.com\nBob 0812345678\nbadline"),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeConverted, report.Outcome)
	assert.Equal(t, "utf-8", report.Encoding)
	assert.Equal(t, 3, report.TotalUnits)
	assert.Equal(t, 2, report.Produced)
	assert.Equal(t, []Skip{{Index: 2, Reason: ReasonNoSeparator}}, report.Skipped)

	doc := string(report.Document)
	assert.Equal(t, 2, strings.Count(doc, "BEGIN:VCARD"))
	assert.Contains(t, doc, "FN:Alice\nTEL:08123\nEMAIL:alice@x.com\n")
	assert.Contains(t, doc, "FN:Bob\nTEL:0812345678\n")
}

// TestConvertTextSkipsInvalidRecords expects that parsed lines without a name or phone are
// reported as such, and that blank lines are neither counted nor reported.
func TestConvertTextSkipsInvalidRecords(t *testing.T) {
	report, err := Convert(Request{
		Source: FormatText,
		Target: FormatText,
		Data:   []byte("Erika|0815\r\n\r\n|4711\r\nHans;\r\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalUnits)
	assert.Equal(t, 1, report.Produced)
	assert.Equal(t, []Skip{
		{Index: 2, Reason: ReasonMissingNameOrPhone},
		{Index: 3, Reason: ReasonMissingNameOrPhone},
	}, report.Skipped)
	assert.Equal(t, "Erika|0815", string(report.Document))
}

// TestConvertNoValidRecords expects the no-valid-records outcome without a document when every
// line is dropped.
func TestConvertNoValidRecords(t *testing.T) {
	report, err := Convert(Request{
		Source: FormatText,
		Target: FormatVCard,
		Data:   []byte("badline\nanother bad line"),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoValidRecords, report.Outcome)
	assert.Equal(t, 0, report.Produced)
	assert.Equal(t, 2, report.TotalUnits)
	assert.Len(t, report.Skipped, 2)
	assert.Nil(t, report.Document)
}

// TestConvertEmptyInput expects ErrEmptyInput for documents without any input unit.
func TestConvertEmptyInput(t *testing.T) {
	for _, req := range []Request{
		{Source: FormatText, Target: FormatVCard, Data: []byte("\n  \n")},
		{Source: FormatVCard, Target: FormatText, Data: []byte("no cards here")},
		{Source: FormatSpreadsheet, Target: FormatVCard, Data: []byte("Name,Phone\n")},
	} {
		_, err := Convert(req)
		assert.True(t, errors.Is(err, ErrEmptyInput), "source %s", req.Source)
	}
}

// TestConvertEncodingFallback sends Latin-1 bytes. It expects that UTF-8 decoding fails and the
// fallback candidate is used.
func TestConvertEncodingFallback(t *testing.T) {
	report, err := Convert(Request{
		Source: FormatText,
		Target: FormatText,
		Data:   []byte("Rudi V\xf6ller|0815"),
	})
	require.NoError(t, err)
	assert.Equal(t, "latin1", report.Encoding)
	assert.Equal(t, "Rudi Völler|0815", string(report.Document))
}

// TestConvertUnreadableEncoding expects ErrUnreadableEncoding when no candidate decodes the input.
func TestConvertUnreadableEncoding(t *testing.T) {
	_, err := Convert(Request{
		Source:    FormatText,
		Target:    FormatVCard,
		Data:      []byte("Rudi V\xf6ller|0815"),
		Encodings: []string{"utf-8", "no-such-encoding"},
	})
	assert.True(t, errors.Is(err, ErrUnreadableEncoding))
}

// TestConvertStripsByteOrderMark expects that a UTF-8 BOM does not end up in the first name.
func TestConvertStripsByteOrderMark(t *testing.T) {
	report, err := Convert(Request{Source: FormatText, Target: FormatText, Data: []byte("\xef\xbb\xbfErika|0815")})
	require.NoError(t, err)
	assert.Equal(t, "Erika|0815", string(report.Document))
}

// TestConvertVCardToText converts a VCF document with a malformed card to text.
func TestConvertVCardToText(t *testing.T) {
	doc := "BEGIN:VCARD\nVERSION:3.0\nFN:Erika\nTEL:0815\nEMAIL:e@x.com\nORG:ACME\nEND:VCARD\n\n" +
		"BEGIN:VCARD\nVERSION:3.0\nFN:Broken\nTEL:4711\n\n" +
		"BEGIN:VCARD\nVERSION:3.0\nFN:Hans\nTEL:1234\nEND:VCARD\n"
	report, err := Convert(Request{Source: FormatVCard, Target: FormatText, Data: []byte(doc)})
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalUnits)
	assert.Equal(t, 2, report.Produced)
	assert.Equal(t, []Skip{{Index: 1, Reason: ReasonMalformedCard}}, report.Skipped)
	assert.Equal(t, "Erika|0815|e@x.com\nHans|1234", string(report.Document))
}

// TestConvertVCardRoundTrip converts text to VCF and the result back to text. It expects the
// original name, phone and email of every contact.
func TestConvertVCardRoundTrip(t *testing.T) {
	input := "Erika|0815|e@x.com|ACME\nHans|4711\nRudi|1234|rudi@example.com"
	toVCard, err := Convert(Request{Source: FormatText, Target: FormatVCard, Data: []byte(input)})
	require.NoError(t, err)
	toText, err := Convert(Request{Source: FormatVCard, Target: FormatText, Data: toVCard.Document})
	require.NoError(t, err)
	assert.Equal(t, 3, toText.Produced)
	assert.Equal(t, "Erika|0815|e@x.com\nHans|4711\nRudi|1234|rudi@example.com", string(toText.Document))
}

// TestConvertWorkbook converts an XLSX workbook with a blank row and an incomplete row.
func TestConvertWorkbook(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Nama", "No HP", "Email Kantor", "Perusahaan"},
		{"Erika Mustermann", "+49 0815 4711", "erika@example.com", "ACME"},
		{},
		{"Hans Wurst"},
		{"Rudi Völler", 8154711},
	})
	report, err := Convert(Request{Source: FormatSpreadsheet, Target: FormatVCard, Data: data})
	require.NoError(t, err)
	assert.Equal(t, "", report.Encoding)
	assert.Equal(t, 3, report.TotalUnits)
	assert.Equal(t, 2, report.Produced)
	assert.Equal(t, []Skip{{Index: 3, Reason: ReasonMissingNameOrPhone}}, report.Skipped)

	doc := string(report.Document)
	assert.Contains(t, doc, "FN:Erika Mustermann\nTEL:+49 0815 4711\nEMAIL:erika@example.com\nORG:ACME\n")
	assert.Contains(t, doc, "FN:Rudi Völler\nTEL:8154711\n")
}

// TestConvertWorkbookMissingColumns expects ErrMissingRequiredColumns before any row is read.
func TestConvertWorkbookMissingColumns(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{{"ID"}, {"1"}})
	_, err := Convert(Request{Source: FormatSpreadsheet, Target: FormatVCard, Data: data})
	assert.True(t, errors.Is(err, ErrMissingRequiredColumns))
}

// TestConvertCSVSpreadsheet reads a semicolon separated CSV export.
func TestConvertCSVSpreadsheet(t *testing.T) {
	data := []byte("Name;Telepon;Email\n\"Mustermann, Erika\";0815;erika@example.com\nHans;4711;\n")
	report, err := Convert(Request{Source: FormatSpreadsheet, Target: FormatText, Data: data})
	require.NoError(t, err)
	assert.Equal(t, "utf-8", report.Encoding)
	assert.Equal(t, "Mustermann, Erika|0815|erika@example.com\nHans|4711", string(report.Document))
}

// TestConvertWorkbookLongNumbers converts a workbook whose phone column holds numbers. It expects
// the digits as stored, not the scientific notation of the displayed value.
func TestConvertWorkbookLongNumbers(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Nama", "Telepon"},
		{"Rudi", 8123456789012345},
		{"Erika", 628123456789},
	})
	report, err := Convert(Request{Source: FormatSpreadsheet, Target: FormatText, Data: data})
	require.NoError(t, err)
	assert.Equal(t, "Rudi|8123456789012345\nErika|628123456789", string(report.Document))
}

// TestConvertLegacyWorkbook converts an XLS workbook with a compressed and a UTF-16 label, a
// number cell, a missing row and an incomplete row.
func TestConvertLegacyWorkbook(t *testing.T) {
	data, err := os.ReadFile("testdata/contacts.xls")
	require.NoError(t, err)
	report, err := Convert(Request{Source: FormatSpreadsheet, Target: FormatVCard, Data: data})
	require.NoError(t, err)
	assert.Equal(t, "", report.Encoding)
	assert.Equal(t, 3, report.TotalUnits)
	assert.Equal(t, 2, report.Produced)
	assert.Equal(t, []Skip{{Index: 4, Reason: ReasonMissingNameOrPhone}}, report.Skipped)

	doc := string(report.Document)
	assert.Contains(t, doc, "FN:Jürgen Klopp\nTEL:0812-555\nEMAIL:jurgen@example.com\n")
	assert.Contains(t, doc, "FN:Rudi\nTEL:8123456789012345\n")
}

// TestConvertUnreadableLegacyWorkbook expects ErrUnsupportedWorkbook for compound files without a
// workbook stream, for truncated ones and for ones whose sector chains leave the allocation
// table or run in a circle.
func TestConvertUnreadableLegacyWorkbook(t *testing.T) {
	encrypted, err := os.ReadFile("testdata/encrypted.xls")
	require.NoError(t, err)
	workbook, err := os.ReadFile("testdata/contacts.xls")
	require.NoError(t, err)
	outside := bytes.Clone(workbook)
	binary.LittleEndian.PutUint32(outside[sectorSize+4*2:], 0x00100000)
	circular := bytes.Clone(workbook)
	binary.LittleEndian.PutUint32(circular[sectorSize+4*9:], 2)

	tests := map[string][]byte{
		"encrypted": encrypted,
		"truncated": append([]byte("\xd0\xcf\x11\xe0\xa1\xb1\x1a\xe1"), make([]byte, 64)...),
		"outside":   outside,
		"circular":  circular,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Convert(Request{Source: FormatSpreadsheet, Target: FormatVCard, Data: data})
			assert.True(t, errors.Is(err, ErrUnsupportedWorkbook))
		})
	}
}

// TestConvertUnsupportedFormats expects ErrUnsupportedFormat for unknown formats and for
// spreadsheets as target.
func TestConvertUnsupportedFormats(t *testing.T) {
	_, err := Convert(Request{Source: "pdf", Target: FormatVCard, Data: []byte("x")})
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	_, err = Convert(Request{Source: FormatText, Target: FormatSpreadsheet, Data: []byte("x")})
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	_, err = ParseFormat("pdf")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	format, err := ParseFormat(" VCard ")
	require.NoError(t, err)
	assert.Equal(t, FormatVCard, format)
}

// TestConvertConcurrently runs many conversions at once. It expects identical results, which the
// race detector verifies to be free of shared state.
func TestConvertConcurrently(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := Convert(Request{Source: FormatText, Target: FormatVCard, Data: []byte("Erika|0815\nHans 4711")})
			assert.NoError(t, err)
			assert.Equal(t, 2, report.Produced)
		}()
	}
	wg.Wait()
}
