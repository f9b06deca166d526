package main

import (
	"encoding/json"
	"fmt"
	"io"
)

// encodeJSON writes v to w as two-space indented JSON with a trailing newline.
func encodeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
