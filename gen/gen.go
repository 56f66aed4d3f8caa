// RTLSYM - A decoder stack for symbol streams demodulated by rtl-sdr receivers.
// Copyright (C) 2026 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package gen synthesizes rtl-sdr sample streams carrying known symbols for
// exercising the demodulator and decoder stacks.
package gen

import (
	"crypto/rand"
	"math"

	"github.com/bemasher/rtlsym/crc"
	"github.com/bemasher/rtlsym/decoder"
)

// NewRandFrame returns length random bytes, the last two holding the
// checksum of the rest. The checksum is inverted for checksums with a
// non-zero residue.
func NewRandFrame(length int, c crc.CRC) (frame []byte, err error) {
	frame = make([]byte, length)
	_, err = rand.Read(frame[:length-2])
	if err != nil {
		return nil, err
	}

	checksum := c.Checksum(frame[:length-2])
	if c.Residue != 0 {
		checksum = ^checksum
	}
	frame[length-2] = uint8(checksum >> 8)
	frame[length-1] = uint8(checksum & 0xFF)

	return
}

type ManchesterLUT [16]byte

func NewManchesterLUT() ManchesterLUT {
	return ManchesterLUT{
		85, 86, 89, 90, 101, 102, 105, 106, 149, 150, 153, 154, 165, 166, 169, 170,
	}
}

func (lut ManchesterLUT) Encode(data []byte) (manchester []byte) {
	manchester = make([]byte, len(data)<<1)

	for idx := range data {
		manchester[idx<<1] = lut[data[idx]>>4]
		manchester[idx<<1+1] = lut[data[idx]&0x0F]
	}

	return
}

// UnpackBits splits bytes into bits, most significant first.
func UnpackBits(data []byte) []decoder.Symbol {
	bits := make([]decoder.Symbol, len(data)<<3)

	for idx, b := range data {
		offset := idx << 3
		for bit := 7; bit >= 0; bit-- {
			bits[offset+(7-bit)] = decoder.Symbol(b>>uint8(bit)) & 0x01
		}
	}

	return bits
}

// LevelBytes returns, for each of the 2^bps symbol values, the in-phase byte
// whose normalized power is evenly spaced between 0 and 1.
func LevelBytes(bps uint8) []byte {
	n := 1 << bps
	levels := make([]byte, n)

	for k := range levels {
		power := float64(k) / float64(n-1)
		levels[k] = uint8(math.Round(127.5 - 127.5*math.Sqrt(power)))
	}

	return levels
}

// Modulate amplitude keys symbols onto interleaved IQ bytes, holding each
// symbol for symbolLength samples. The quadrature channel is left at zero.
func Modulate(syms []decoder.Symbol, bps uint8, symbolLength int) []byte {
	levels := LevelBytes(bps)
	signal := make([]byte, 0, len(syms)*symbolLength<<1)

	for _, sym := range syms {
		for i := 0; i < symbolLength; i++ {
			signal = append(signal, levels[sym], 127)
		}
	}

	return signal
}
