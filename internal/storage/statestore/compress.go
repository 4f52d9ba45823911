package statestore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4"
)

const (
	formatRaw byte = 0
	formatLZ4 byte = 1

	maxRecordSize = 16 << 20
)

var errCorrupt = errors.New("corrupt record")

// compress frames data as format byte, uvarint length, payload. Incompressible
// input is stored raw.
func compress(data []byte) ([]byte, error) {
	hdr := make([]byte, 1+binary.MaxVarintLen64)
	n := binary.PutUvarint(hdr[1:], uint64(len(data)))
	hdr = hdr[:1+n]

	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	size, err := lz4.CompressBlock(data, buf, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if size == 0 || size >= len(data) {
		hdr[0] = formatRaw
		return append(hdr, data...), nil
	}
	hdr[0] = formatLZ4
	return append(hdr, buf[:size]...), nil
}

func decompress(rec []byte) ([]byte, error) {
	if len(rec) < 2 {
		return nil, errCorrupt
	}
	size, n := binary.Uvarint(rec[1:])
	if n <= 0 || size > maxRecordSize {
		return nil, errCorrupt
	}
	payload := rec[1+n:]
	switch rec[0] {
	case formatRaw:
		if uint64(len(payload)) != size {
			return nil, errCorrupt
		}
		return append([]byte(nil), payload...), nil
	case formatLZ4:
		out := make([]byte, size)
		got, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if uint64(got) != size {
			return nil, errCorrupt
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: format %d", errCorrupt, rec[0])
	}
}
