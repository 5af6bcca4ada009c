package convert

import (
	"regexp"
	"strings"

	"gitlab.com/dirk.krummacker/contacts-converter/internal/model"
)

// separators are tried in this order. Only the first one present in a line is used.
var separators = []string{"|", ",", ";", "\t"}

// phoneToken matches a whitespace delimited token that looks like a phone number.
var phoneToken = regexp.MustCompile(`[0-9]{3,}`)

// ParseLine extracts a contact from one line of free-form text. The line is split on the first
// separator it contains, which yields name, phone and optionally email and organization in this
// order. Without a separator the first token containing at least three consecutive digits is
// the phone and the other tokens form the name. The returned contact is not validated. ParseLine
// returns nil if the line cannot be interpreted at all.
//
// Examples:
//
//	Erika Mustermann|+49 0815 4711|erika@example.com|ACME
//	Erika Mustermann, 08154711
//	Erika Mustermann 08154711
func ParseLine(line string) *model.Contact {
	line = strings.TrimSpace(line)
	for _, sep := range separators {
		if !strings.Contains(line, sep) {
			continue
		}
		fields := strings.Split(line, sep)
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		contact := &model.Contact{Name: fields[0], Phone: fields[1]}
		if len(fields) > 2 {
			contact.Email = model.Optional(fields[2])
		}
		if len(fields) > 3 {
			contact.Organization = model.Optional(fields[3])
		}
		return contact
	}

	tokens := strings.Fields(line)
	if len(tokens) < 2 {
		return nil
	}
	for i, token := range tokens {
		if !phoneToken.MatchString(token) {
			continue
		}
		rest := make([]string, 0, len(tokens)-1)
		rest = append(rest, tokens[:i]...)
		rest = append(rest, tokens[i+1:]...)
		return &model.Contact{Name: strings.Join(rest, " "), Phone: token}
	}
	return nil
}

// parseLines runs ParseLine on every non-blank line of a text document. Blank lines are not
// counted as input units but still advance the line index.
func parseLines(text string) []candidate {
	var candidates []candidate
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		c := candidate{index: i, contact: ParseLine(line)}
		if c.contact == nil {
			c.reason = ReasonNoSeparator
		}
		candidates = append(candidates, c)
	}
	return candidates
}
