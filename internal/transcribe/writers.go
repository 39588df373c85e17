package transcribe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"scribe/internal/manifest"
	"scribe/internal/services"
)

// serialize renders a transcript in the requested format. txt carries the
// normalized text, vtt the unmodified cue bytes, jsonl one object per
// normalized line with a single "text" field.
func serialize(format manifest.Format, text string, raw []byte) ([]byte, error) {
	switch format {
	case manifest.FormatTxt:
		return []byte(text + "\n"), nil
	case manifest.FormatVtt:
		return raw, nil
	case manifest.FormatJsonl:
		var buf bytes.Buffer
		for _, line := range strings.Split(text, "\n") {
			record, err := json.Marshal(struct {
				Text string `json:"text"`
			}{Text: line})
			if err != nil {
				return nil, fmt.Errorf("marshal jsonl line: %w", err)
			}
			buf.Write(record)
			buf.WriteByte('\n')
		}
		return buf.Bytes(), nil
	default:
		return nil, services.Wrap(services.ErrInvalidInput, "transcribe", "serialize",
			fmt.Sprintf("unsupported format %q", format), nil)
	}
}
