// Package convert turns uploaded contact files into contact records and writes them out again as
// VCF or delimited text. All functions are pure in-memory transformations without shared state,
// so they may be called from any number of goroutines.
package convert

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/dirk.krummacker/contacts-converter/internal/model"
)

// Format names a file format that can be read or written.
type Format string

const (
	FormatText        Format = "text"
	FormatVCard       Format = "vcard"
	FormatSpreadsheet Format = "spreadsheet"
)

// SkipReason explains why one line, row or card did not yield a contact.
type SkipReason string

const (
	ReasonNoSeparator           SkipReason = "no-separator-found"
	ReasonMissingNameOrPhone    SkipReason = "missing-name-or-phone"
	ReasonMissingRequiredColumn SkipReason = "missing-required-column"
	ReasonMalformedCard         SkipReason = "malformed-card"
)

// Outcome is the terminal state of a conversion that did not fail.
type Outcome string

const (
	OutcomeConverted      Outcome = "converted"
	OutcomeNoValidRecords Outcome = "no-valid-records"
)

var (
	// ErrUnreadableEncoding is returned when none of the encoding candidates decoded the input.
	ErrUnreadableEncoding = errors.New("no encoding candidate could decode the input")

	// ErrMissingRequiredColumns is returned when a spreadsheet has no name or no phone column.
	ErrMissingRequiredColumns = errors.New("spreadsheet lacks a name or phone column")

	// ErrEmptyInput is returned when the input contains no line, row or card to examine.
	ErrEmptyInput = errors.New("input contains no contact data")

	// ErrUnsupportedFormat is returned for an unknown source or target format.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrUnsupportedWorkbook is returned for XLS files that cannot be read, e.g. encrypted ones.
	ErrUnsupportedWorkbook = errors.New("unreadable or encrypted workbook, save the file as .xlsx or .csv")
)

// DefaultEncodings are tried in order when a request does not name any encoding candidates.
var DefaultEncodings = []string{"utf-8", "latin1"}

// Request is the input of a single conversion.
type Request struct {
	Source    Format
	Target    Format
	Data      []byte
	Encodings []string
}

// Skip records one input unit that was dropped, with its 0-based index in the input: the line
// number for text, the sheet row number for spreadsheets (the header is row 0) and the card
// number for VCF documents.
type Skip struct {
	Index  int
	Reason SkipReason
}

// Report is the result of a conversion. Document is nil unless Outcome is OutcomeConverted.
type Report struct {
	Source     Format
	Target     Format
	Encoding   string
	TotalUnits int
	Produced   int
	Skipped    []Skip
	Outcome    Outcome
	Document   []byte
}

// candidate is a parsed input unit before the required-field check. A nil contact means the unit
// could not be parsed at all, in which case reason says why.
type candidate struct {
	index   int
	contact *model.Contact
	reason  SkipReason
}

// Convert runs one conversion: it decodes the input, parses it according to the source format,
// drops invalid records and serializes the remaining ones in the target format. Per-unit problems
// are collected in the report. Only problems with the document as a whole are returned as errors.
func Convert(req Request) (*Report, error) {
	if req.Target != FormatVCard && req.Target != FormatText {
		return nil, fmt.Errorf("target %q: %w", req.Target, ErrUnsupportedFormat)
	}
	report := &Report{Source: req.Source, Target: req.Target}

	var candidates []candidate
	var err error
	switch req.Source {
	case FormatText:
		var text string
		text, report.Encoding, err = Decode(req.Data, encodingsOrDefault(req.Encodings))
		if err != nil {
			return nil, err
		}
		candidates = parseLines(text)
	case FormatVCard:
		var text string
		text, report.Encoding, err = Decode(req.Data, encodingsOrDefault(req.Encodings))
		if err != nil {
			return nil, err
		}
		candidates = parseCards(text)
	case FormatSpreadsheet:
		var rows [][]string
		rows, report.Encoding, err = ReadRows(req.Data, encodingsOrDefault(req.Encodings))
		if err != nil {
			return nil, err
		}
		candidates, err = parseRows(rows)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("source %q: %w", req.Source, ErrUnsupportedFormat)
	}
	if len(candidates) == 0 {
		return nil, ErrEmptyInput
	}

	report.TotalUnits = len(candidates)
	contacts := make([]model.Contact, 0, len(candidates))
	for _, c := range candidates {
		switch {
		case c.contact == nil:
			report.Skipped = append(report.Skipped, Skip{Index: c.index, Reason: c.reason})
		case !c.contact.Valid():
			report.Skipped = append(report.Skipped, Skip{Index: c.index, Reason: ReasonMissingNameOrPhone})
		default:
			contacts = append(contacts, *c.contact)
		}
	}
	report.Produced = len(contacts)
	if len(contacts) == 0 {
		report.Outcome = OutcomeNoValidRecords
		return report, nil
	}

	if req.Target == FormatVCard {
		report.Document = []byte(WriteVCard(contacts))
	} else {
		report.Document = []byte(WriteText(contacts))
	}
	report.Outcome = OutcomeConverted
	return report, nil
}

// ParseFormat maps a format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatText, FormatVCard, FormatSpreadsheet:
		return f, nil
	}
	return "", fmt.Errorf("format %q: %w", name, ErrUnsupportedFormat)
}

func encodingsOrDefault(encodings []string) []string {
	if len(encodings) == 0 {
		return DefaultEncodings
	}
	return encodings
}
