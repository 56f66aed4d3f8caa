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

// Package scrambler registers the "scrambler" decoder, a self-synchronizing
// (multiplicative) descrambler for bit streams.
package scrambler

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/bemasher/rtlsym/decoder"
)

// MaxTap is the longest delay a tap may have.
const MaxTap = 32

// DefaultTaps is the G3RUH polynomial 1 + x^12 + x^17.
var DefaultTaps = []int{12, 17}

func init() {
	decoder.Register("scrambler", "self-synchronizing descrambler", func() decoder.Objects {
		s := New()
		return decoder.Objects{Decoder: s, UI: decoder.StatusSurface{Label: "Scrambler", Decoder: s}}
	})
}

// Scrambler XORs each bit with the bits found at its taps. Descrambling taps
// the received bits, scrambling taps the transmitted ones, so a descrambler
// recovers from any initial state after the longest tap.
type Scrambler struct {
	cfg      decoder.Config
	taps     []int
	mask     uint32
	scramble bool

	reg uint32
}

func New() *Scrambler {
	s := &Scrambler{}
	s.setTaps(DefaultTaps)
	return s
}

func (s *Scrambler) setTaps(taps []int) {
	s.taps = append([]int(nil), taps...)
	s.mask = 0
	for _, tap := range taps {
		s.mask |= 1 << uint(tap-1)
	}
}

func (s *Scrambler) Name() string {
	return "scrambler"
}

func (s *Scrambler) Configure(cfg decoder.Config) error {
	if err := cfg.Only("taps", "scramble"); err != nil {
		return err
	}
	taps, err := cfg.Ints("taps", DefaultTaps)
	if err != nil {
		return err
	}
	if len(taps) == 0 {
		return errors.Wrap(decoder.ErrConfig, "taps: empty")
	}
	for _, tap := range taps {
		if tap < 1 || tap > MaxTap {
			return errors.Wrapf(decoder.ErrConfig, "taps: %d outside [1, %d]", tap, MaxTap)
		}
	}
	scramble, err := cfg.Bool("scramble", false)
	if err != nil {
		return err
	}

	s.cfg = cfg.Copy()
	s.setTaps(taps)
	s.scramble = scramble
	s.reg = 0

	return nil
}

func (s *Scrambler) Config() decoder.Config {
	return s.cfg.Copy()
}

func (s *Scrambler) SetInputBps(bps uint8) error {
	if bps != 1 {
		return decoder.RejectBps(s.Name(), bps, "expects a bit stream")
	}
	return nil
}

func (s *Scrambler) OutputBps() uint8 {
	return 1
}

func (s *Scrambler) Work(_ decoder.FrameID, in []decoder.Symbol) ([]decoder.Symbol, error) {
	if err := decoder.CheckSymbols(in, 1); err != nil {
		return nil, err
	}

	out := make([]decoder.Symbol, len(in))
	for idx, bit := range in {
		out[idx] = bit ^ parity(s.reg&s.mask)

		shifted := bit
		if s.scramble {
			shifted = out[idx]
		}
		s.reg = s.reg<<1 | uint32(shifted)
	}

	return out, nil
}

func parity(v uint32) decoder.Symbol {
	v ^= v >> 16
	v ^= v >> 8
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return decoder.Symbol(v & 1)
}

func (s *Scrambler) State() string {
	mode := "descramble"
	if s.scramble {
		mode = "scramble"
	}
	return fmt.Sprintf("%s, taps %v", mode, s.taps)
}
