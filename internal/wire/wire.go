package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version  byte = 1
	kindCell byte = 1

	// CellSize is the encoded length of a counter cell.
	CellSize = 4 + 1 + 1 + 8 + 8
)

var (
	ErrCorrupt = errors.New("shardcount: corrupt cell")
	magic4     = [...]byte{'S', 'H', 'C', 'T'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Cell: magic(4) | ver(1) | kind(1=cell) | value(u64 be) | expiresAt(i64 be, unix nanos, 0 = never)
func EncodeCell(value uint64, expiresAt int64) []byte {
	b := make([]byte, CellSize)
	copy(b, magic4[:])
	b[4] = version
	b[5] = kindCell
	binary.BigEndian.PutUint64(b[6:14], value)
	binary.BigEndian.PutUint64(b[14:22], uint64(expiresAt))
	return b
}

func DecodeCell(b []byte) (value uint64, expiresAt int64, err error) {
	if len(b) != CellSize || !hasMagic(b) || b[4] != version || b[5] != kindCell {
		return 0, 0, ErrCorrupt
	}
	value = binary.BigEndian.Uint64(b[6:14])
	expiresAt = int64(binary.BigEndian.Uint64(b[14:22]))
	if expiresAt < 0 {
		return 0, 0, ErrCorrupt
	}
	return value, expiresAt, nil
}

// Expired reports whether a cell with the given deadline is dead at now (unix nanos).
func Expired(expiresAt, now int64) bool {
	return expiresAt != 0 && now >= expiresAt
}
