// Package vbyte implements the variable-byte integer codec used for postings.
//
// Each integer is written as its 7-bit groups, most significant group first.
// The high bit of a byte marks the last byte of an integer (1 = stop,
// 0 = continue), so 0 encodes as 0x80 and 128 as 0x01 0x80.
package vbyte

import (
	"fmt"
	"io"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

const (
	stopBit  = 0x80
	dataMask = 0x7f
	// MaxLen is the longest encoding of a uint64.
	MaxLen = 10
)

// Encode returns the concatenated encodings of nums. Encoding an empty slice
// yields an empty (non-nil) byte slice.
func Encode(nums []uint64) []byte {
	out := make([]byte, 0, len(nums))
	for _, n := range nums {
		out = AppendUint(out, n)
	}
	return out
}

// AppendUint appends the encoding of n to dst.
func AppendUint(dst []byte, n uint64) []byte {
	var buf [MaxLen]byte
	i := len(buf) - 1
	buf[i] = byte(n&dataMask) | stopBit
	n >>= 7
	for n > 0 {
		i--
		buf[i] = byte(n & dataMask)
		n >>= 7
	}
	return append(dst, buf[i:]...)
}

// Len reports how many bytes AppendUint writes for n.
func Len(n uint64) int {
	l := 1
	for n >>= 7; n > 0; n >>= 7 {
		l++
	}
	return l
}

// Decode decodes every integer in data. A stream that ends in the middle of
// an integer, or an integer wider than 64 bits, is an ErrMalformedStream.
func Decode(data []byte) ([]uint64, error) {
	d := NewDecoder(data)
	out := make([]uint64, 0, len(data))
	for {
		n, err := d.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
}

// Decoder reads integers one at a time from an encoded byte slice.
type Decoder struct {
	data []byte
	pos  int
}

func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Next returns the next integer, or io.EOF once the input is exhausted on an
// integer boundary.
func (d *Decoder) Next() (uint64, error) {
	if d.pos >= len(d.data) {
		return 0, io.EOF
	}
	start := d.pos
	var value uint64
	for d.pos < len(d.data) {
		b := d.data[d.pos]
		d.pos++
		if value > math.MaxUint64>>7 {
			return 0, fmt.Errorf("%w: integer starting at byte %d overflows 64 bits", apperrors.ErrMalformedStream, start)
		}
		value = value<<7 | uint64(b&dataMask)
		if b&stopBit != 0 {
			return value, nil
		}
	}
	return 0, fmt.Errorf("%w: stream ends inside integer starting at byte %d", apperrors.ErrMalformedStream, start)
}

// Remaining reports the number of undecoded bytes.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.pos
}
