package convert

import (
	"strings"

	"gitlab.com/dirk.krummacker/contacts-converter/internal/model"
)

// WriteVCard serializes contacts as a VCF 3.0 document, one card per contact followed by a blank
// line. Values are written verbatim and must not contain line breaks.
func WriteVCard(contacts []model.Contact) string {
	var b strings.Builder
	for _, c := range contacts {
		b.WriteString(cardBegin + "\n")
		b.WriteString("VERSION:3.0\n")
		b.WriteString("FN:" + c.Name + "\n")
		b.WriteString("TEL:" + c.Phone + "\n")
		if c.Email != nil && *c.Email != "" {
			b.WriteString("EMAIL:" + *c.Email + "\n")
		}
		if c.Organization != nil && *c.Organization != "" {
			b.WriteString("ORG:" + *c.Organization + "\n")
		}
		b.WriteString(cardEnd + "\n\n")
	}
	return b.String()
}

// WriteText serializes contacts as name|phone lines with the email appended when present. The
// organization is not part of this format.
func WriteText(contacts []model.Contact) string {
	lines := make([]string, 0, len(contacts))
	for _, c := range contacts {
		line := c.Name + "|" + c.Phone
		if c.Email != nil && *c.Email != "" {
			line += "|" + *c.Email
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
