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

// Package pack registers the "pack" and "unpack" decoders, which convert
// between bit streams and multi-bit symbols.
package pack

import (
	"fmt"

	"github.com/bemasher/rtlsym/decoder"
)

func init() {
	decoder.Register("pack", "group bits into symbols", func() decoder.Objects {
		p := NewPacker()
		return decoder.Objects{Decoder: p, UI: decoder.StatusSurface{Label: "Pack", Decoder: p}}
	})
	decoder.Register("unpack", "split symbols into bits", func() decoder.Objects {
		return decoder.Objects{Decoder: NewUnpacker()}
	})
}

// Packer groups bits into symbols of a configured width. Bits of an
// incomplete group are held until the next buffer.
type Packer struct {
	cfg  decoder.Config
	bits uint8
	lsb  bool
	pad  bool

	acc decoder.Symbol
	n   uint8
}

func NewPacker() *Packer {
	return &Packer{bits: decoder.MaxBps}
}

func (p *Packer) Name() string {
	return "pack"
}

func (p *Packer) Configure(cfg decoder.Config) error {
	if err := cfg.Only("bits", "lsb", "pad"); err != nil {
		return err
	}
	bits, err := cfg.IntRange("bits", decoder.MaxBps, 1, decoder.MaxBps)
	if err != nil {
		return err
	}
	lsb, err := cfg.Bool("lsb", false)
	if err != nil {
		return err
	}
	pad, err := cfg.Bool("pad", false)
	if err != nil {
		return err
	}

	p.cfg = cfg.Copy()
	p.bits, p.lsb, p.pad = uint8(bits), lsb, pad
	p.acc, p.n = 0, 0

	return nil
}

func (p *Packer) Config() decoder.Config {
	return p.cfg.Copy()
}

func (p *Packer) SetInputBps(bps uint8) error {
	if bps != 1 {
		return decoder.RejectBps(p.Name(), bps, "expects a bit stream")
	}
	return nil
}

func (p *Packer) OutputBps() uint8 {
	return p.bits
}

func (p *Packer) Work(_ decoder.FrameID, in []decoder.Symbol) ([]decoder.Symbol, error) {
	if err := decoder.CheckSymbols(in, 1); err != nil {
		return nil, err
	}

	out := make([]decoder.Symbol, 0, (int(p.n)+len(in))/int(p.bits))
	for _, bit := range in {
		if p.lsb {
			p.acc |= bit << p.n
		} else {
			p.acc = p.acc<<1 | bit
		}
		p.n++

		if p.n == p.bits {
			out = append(out, p.acc)
			p.acc, p.n = 0, 0
		}
	}

	return out, nil
}

// Flush emits an incomplete group padded with zeros when padding is
// enabled. Otherwise the group waits for more bits.
func (p *Packer) Flush() []decoder.Symbol {
	if !p.pad || p.n == 0 {
		return nil
	}

	sym := p.acc
	if !p.lsb {
		sym <<= p.bits - p.n
	}
	p.acc, p.n = 0, 0

	return []decoder.Symbol{sym}
}

func (p *Packer) State() string {
	order := "msb"
	if p.lsb {
		order = "lsb"
	}
	return fmt.Sprintf("%d bits %s first, %d pending", p.bits, order, p.n)
}

// Unpacker splits symbols of any width into bits.
type Unpacker struct {
	cfg decoder.Config
	lsb bool
	bps uint8
}

func NewUnpacker() *Unpacker {
	return &Unpacker{bps: 1}
}

func (u *Unpacker) Name() string {
	return "unpack"
}

func (u *Unpacker) Configure(cfg decoder.Config) error {
	if err := cfg.Only("lsb"); err != nil {
		return err
	}
	lsb, err := cfg.Bool("lsb", false)
	if err != nil {
		return err
	}

	u.cfg = cfg.Copy()
	u.lsb = lsb

	return nil
}

func (u *Unpacker) Config() decoder.Config {
	return u.cfg.Copy()
}

func (u *Unpacker) SetInputBps(bps uint8) error {
	if !decoder.ValidBps(bps) {
		return decoder.RejectBps(u.Name(), bps, "outside 1..8")
	}
	u.bps = bps
	return nil
}

func (u *Unpacker) OutputBps() uint8 {
	return 1
}

func (u *Unpacker) Work(_ decoder.FrameID, in []decoder.Symbol) ([]decoder.Symbol, error) {
	if err := decoder.CheckSymbols(in, u.bps); err != nil {
		return nil, err
	}

	out := make([]decoder.Symbol, 0, len(in)*int(u.bps))
	for _, sym := range in {
		for bit := uint8(0); bit < u.bps; bit++ {
			shift := u.bps - 1 - bit
			if u.lsb {
				shift = bit
			}
			out = append(out, sym>>shift&1)
		}
	}

	return out, nil
}

func (u *Unpacker) State() string {
	return fmt.Sprintf("%d bps", u.bps)
}
