package export

import (
	"bytes"
	"encoding/json"
	"strings"
)

// prettyJSON indents s when it is a JSON document. Key order and number
// spelling are kept as written. Otherwise s is returned unchanged.
func prettyJSON(s string) (string, bool) {
	trimmed := []byte(strings.TrimSpace(s))
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return s, false
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return s, false
	}
	return buf.String(), true
}

// jsonOrText embeds s as raw JSON when it parses and as a string otherwise.
func jsonOrText(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	return s
}

func marshalIndent(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
