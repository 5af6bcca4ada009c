package convert

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// encodingAliases covers the short names users tend to type that the IANA index does not know.
var encodingAliases = map[string]encoding.Encoding{
	"latin1":       charmap.ISO8859_1,
	"latin-1":      charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"cp1252":       charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
}

// Decode converts data to text with the first encoding candidate that accepts it. It returns the
// text and the name of the candidate that was used. A leading UTF-8 byte order mark is dropped.
func Decode(data []byte, candidates []string) (string, string, error) {
	for _, name := range candidates {
		text, err := decodeWith(data, name)
		if err == nil {
			return text, name, nil
		}
	}
	return "", "", fmt.Errorf("tried %s: %w", strings.Join(candidates, ", "), ErrUnreadableEncoding)
}

// decodeWith decodes data with a single named encoding. UTF-8 input is validated rather than
// repaired, so invalid byte sequences make the candidate fail and the next one is tried.
func decodeWith(data []byte, name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "utf-8" || key == "utf8" {
		out, _, err := transform.Bytes(encoding.UTF8Validator, bytes.TrimPrefix(data, utf8BOM))
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	enc, err := lookupEncoding(key)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	if enc, ok := encodingAliases[name]; ok {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("encoding %q is not supported", name)
	}
	return enc, nil
}
