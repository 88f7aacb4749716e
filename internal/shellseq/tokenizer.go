package shellseq

import "strings"

// SplitPayload splits an isolated OSC 633 payload into its ordered fields.
//
// Fields are ';'-delimited; field[0] is the opcode. Malformed payloads
// degrade to a best-effort field list and never fail: an empty payload
// yields a single empty field.
func SplitPayload(payload string) []string {
	return strings.Split(payload, ";")
}

// ParseProperty parses a "key=value" field from a P opcode.
// Returns empty strings when the field has no '='.
func ParseProperty(field string) (key, value string) {
	idx := strings.IndexByte(field, '=')
	if idx < 0 {
		return "", ""
	}
	return field[:idx], field[idx+1:]
}
