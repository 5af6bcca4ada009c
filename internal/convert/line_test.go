package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseLineSeparators parses a name|phone line with each supported separator. It expects
// that the trimmed name and phone are recovered every time.
func TestParseLineSeparators(t *testing.T) {
	for _, sep := range []string{"|", ",", ";", "\t"} {
		contact := ParseLine("  Erika Mustermann " + sep + " +49 0815 4711  ")
		require.NotNil(t, contact, "separator %q", sep)
		assert.Equal(t, "Erika Mustermann", contact.Name, "separator %q", sep)
		assert.Equal(t, "+49 0815 4711", contact.Phone, "separator %q", sep)
		assert.Nil(t, contact.Email)
		assert.Nil(t, contact.Organization)
	}
}

// TestParseLineOptionalFields parses a line with email and organization.
func TestParseLineOptionalFields(t *testing.T) {
	contact := ParseLine("Erika|0815|erika@example.com|ACME")
	require.NotNil(t, contact)
	require.NotNil(t, contact.Email)
	require.NotNil(t, contact.Organization)
	assert.Equal(t, "erika@example.com", *contact.Email)
	assert.Equal(t, "ACME", *contact.Organization)

	contact = ParseLine("Erika|0815||ACME")
	require.NotNil(t, contact)
	assert.Nil(t, contact.Email)
	assert.Equal(t, "ACME", *contact.Organization)
}

// TestParseLineSeparatorPrecedence expects that a line containing several separators is only
// split on the one that comes first in the fixed order, regardless of its position in the line.
func TestParseLineSeparatorPrecedence(t *testing.T) {
	contact := ParseLine("Mustermann, Erika|0815;4711")
	require.NotNil(t, contact)
	assert.Equal(t, "Mustermann, Erika", contact.Name)
	assert.Equal(t, "0815;4711", contact.Phone)

	contact = ParseLine("Erika;0815,4711")
	require.NotNil(t, contact)
	assert.Equal(t, "Erika;0815", contact.Name)
	assert.Equal(t, "4711", contact.Phone)
}

// TestParseLineWhitespaceFallback parses lines without separators.
func TestParseLineWhitespaceFallback(t *testing.T) {
	contact := ParseLine("Bob 0812345678")
	require.NotNil(t, contact)
	assert.Equal(t, "Bob", contact.Name)
	assert.Equal(t, "0812345678", contact.Phone)

	contact = ParseLine("Hans   Peter  +49815   Wurst")
	require.NotNil(t, contact)
	assert.Equal(t, "Hans Peter Wurst", contact.Name)
	assert.Equal(t, "+49815", contact.Phone)

	// The first digit-bearing token is the phone.
	contact = ParseLine("Agent 007 0812")
	require.NotNil(t, contact)
	assert.Equal(t, "Agent 0812", contact.Name)
	assert.Equal(t, "007", contact.Phone)
}

// TestParseLineUnparseable expects nil for lines that carry no separator and no phone number.
func TestParseLineUnparseable(t *testing.T) {
	for _, line := range []string{"badline", "", "   ", "Erika Mustermann", "Erika 12", "0812345678"} {
		assert.Nil(t, ParseLine(line), "line %q", line)
	}
}

// TestParseLineInvalidRecord expects that a separated line is returned even when it does not
// carry a phone, leaving validation to the caller.
func TestParseLineInvalidRecord(t *testing.T) {
	contact := ParseLine("Erika|")
	require.NotNil(t, contact)
	assert.Equal(t, "Erika", contact.Name)
	assert.Equal(t, "", contact.Phone)
	assert.False(t, contact.Valid())
}
