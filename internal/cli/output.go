package cli

import (
	"io"

	ucodec "github.com/ugorji/go/codec"
)

func writeJSON(w io.Writer, v any) error {
	h := &ucodec.JsonHandle{}
	h.Indent = 2
	h.HTMLCharsAsIs = true
	if err := ucodec.NewEncoder(w, h).Encode(v); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
