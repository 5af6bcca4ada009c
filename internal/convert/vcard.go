package convert

import (
	"strings"

	"gitlab.com/dirk.krummacker/contacts-converter/internal/model"
)

const (
	cardBegin = "BEGIN:VCARD"
	cardEnd   = "END:VCARD"
)

// cardFields holds the first non-blank value of each property we read from a card.
type cardFields struct {
	name, phone, email, organization string
}

// ParseVCard extracts the contacts of a VCF document. Cards that lack END:VCARD or a name or
// phone are returned as skips, indexed by their position in the document.
func ParseVCard(text string) ([]model.Contact, []Skip) {
	var contacts []model.Contact
	var skips []Skip
	for _, c := range parseCards(text) {
		if c.contact == nil {
			skips = append(skips, Skip{Index: c.index, Reason: c.reason})
			continue
		}
		contacts = append(contacts, *c.contact)
	}
	return contacts, skips
}

// parseCards splits a document on BEGIN:VCARD. Text in front of the first marker is not a card.
func parseCards(text string) []candidate {
	chunks := strings.Split(text, cardBegin)
	candidates := make([]candidate, 0, len(chunks)-1)
	for i, chunk := range chunks[1:] {
		c := candidate{index: i}
		fields, complete := scanCard(chunk)
		switch {
		case !complete:
			c.reason = ReasonMalformedCard
		case fields.name == "" || fields.phone == "":
			c.reason = ReasonMissingNameOrPhone
		default:
			c.contact = &model.Contact{
				Name:         fields.name,
				Phone:        fields.phone,
				Email:        model.Optional(fields.email),
				Organization: model.Optional(fields.organization),
			}
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// scanCard reads the lines of one card up to END:VCARD. It reports whether the end marker was
// seen. Property parameters such as TEL;TYPE=CELL and group prefixes such as item1.TEL are
// ignored, values are trimmed but otherwise taken verbatim, and folded continuation lines are not
// joined.
func scanCard(chunk string) (cardFields, bool) {
	var fields cardFields
	for _, line := range strings.Split(chunk, "\n") {
		line = strings.TrimSpace(line)
		if strings.EqualFold(line, cardEnd) {
			return fields, true
		}
		property, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		property, _, _ = strings.Cut(property, ";")
		if _, name, grouped := strings.Cut(property, "."); grouped {
			property = name
		}
		var target *string
		switch strings.ToUpper(strings.TrimSpace(property)) {
		case "FN":
			target = &fields.name
		case "TEL":
			target = &fields.phone
		case "EMAIL":
			target = &fields.email
		case "ORG":
			target = &fields.organization
		default:
			continue
		}
		if *target == "" {
			*target = value
		}
	}
	return fields, false
}
