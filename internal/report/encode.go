package report

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Write encodes r to w in the requested format.
func Write(w io.Writer, r Report, format Format, opts TextOptions) error {
	switch format {
	case FormatText:
		return WriteText(w, r, opts)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		return enc.Close()
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("msgpack")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode msgpack report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported report format %s", format)
	}
}

// ReadMsgpack decodes a report written with FormatMsgpack.
func ReadMsgpack(r io.Reader) (Report, error) {
	var out Report
	if err := msgpack.NewDecoder(r).Decode(&out); err != nil {
		return Report{}, fmt.Errorf("decode msgpack report: %w", err)
	}
	return out, nil
}
