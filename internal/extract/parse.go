package extract

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/outreach-cli/internal/model"
)

// phonePattern is the permissive scan used when the response carries no
// usable JSON array.
var phonePattern = regexp.MustCompile(`\+?\(?[0-9]{1,4}\)?[-\s.]?\(?[0-9]{1,4}\)?[-\s.]?[0-9]{3,4}[-\s.]?[0-9]{3,4}`)

// ParseContacts reads contacts from a vision response. The first substring
// that decodes as a JSON array of contact objects wins; prose, markdown
// fences and unrelated arrays such as "[2]" around it are ignored. Otherwise
// every phone-like run in the text becomes a nameless contact and fallback is
// true. Contacts with an empty phone are dropped.
func ParseContacts(text string) (contacts []model.Contact, fallback bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}
		elems, ok := decodeArrayAt(text, i)
		if !ok {
			continue
		}
		if parsed, ok := decodeContacts(elems); ok {
			return parsed, false
		}
	}
	return scanPhones(text), true
}

// decodeArrayAt decodes the JSON array that starts at text[i].
func decodeArrayAt(text string, i int) ([]json.RawMessage, bool) {
	var elems []json.RawMessage
	dec := json.NewDecoder(strings.NewReader(text[i:]))
	if err := dec.Decode(&elems); err != nil {
		return nil, false
	}
	return elems, true
}

type rawContact struct {
	Phone json.RawMessage `json:"phone"`
	Name  json.RawMessage `json:"name"`
}

func decodeContacts(elems []json.RawMessage) ([]model.Contact, bool) {
	out := make([]model.Contact, 0, len(elems))
	for _, e := range elems {
		if !bytes.HasPrefix(bytes.TrimSpace(e), []byte("{")) {
			return nil, false
		}
		var rc rawContact
		if err := json.Unmarshal(e, &rc); err != nil {
			return nil, false
		}
		phone, ok := decodePhone(rc.Phone)
		if !ok {
			return nil, false
		}
		if phone == "" {
			continue
		}
		out = append(out, model.Contact{Phone: phone, Name: decodeName(rc.Name)})
	}
	return out, true
}

// decodePhone accepts a JSON string, number or null.
func decodePhone(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// decodeName returns nil for missing, null, non-string and placeholder names.
func decodeName(raw json.RawMessage) *string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return cleanName(s)
}

func cleanName(s string) *string {
	s = strings.TrimSpace(norm.NFC.String(s))
	switch strings.ToLower(s) {
	case "", "null", "none":
		return nil
	}
	return &s
}

func scanPhones(text string) []model.Contact {
	matches := phonePattern.FindAllString(text, -1)
	out := make([]model.Contact, 0, len(matches))
	for _, m := range matches {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, model.Contact{Phone: m})
		}
	}
	return out
}
