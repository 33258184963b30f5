package utils

import (
	"bufio"
	"io"
)

// BOM is written at the start of exported CSVs so spreadsheet tools detect
// UTF-8.
const BOM = "\ufeff"

// StripBOM skips a leading UTF-8 byte order mark, if any.
func StripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(BOM)); err == nil && string(b) == BOM {
		_, _ = br.Discard(len(BOM))
	}
	return br
}
