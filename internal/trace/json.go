package trace

import (
	"bytes"
	"encoding/json"
)

// EncodeJSON marshals v like json.MarshalIndent, without escaping <, > and &
// so disassembly and symbol attributes stay readable. An empty indent gives
// compact output. The result has no trailing newline.
func EncodeJSON(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
