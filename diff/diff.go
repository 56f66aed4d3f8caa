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

// Package diff registers the "diff" decoder, which undoes differential
// encoding of multi-level symbols.
package diff

import (
	"fmt"

	"github.com/bemasher/rtlsym/decoder"
)

func init() {
	decoder.Register("diff", "differential decoder", func() decoder.Objects {
		d := New()
		return decoder.Objects{Decoder: d, UI: decoder.StatusSurface{Label: "Differential", Decoder: d}}
	})
}

// Decoder emits the difference between consecutive symbols modulo 2^bps. The
// previous symbol is kept across buffers.
type Decoder struct {
	cfg  decoder.Config
	sign bool

	bps  uint8
	prev decoder.Symbol
}

func New() *Decoder {
	return &Decoder{bps: 1}
}

func (d *Decoder) Name() string {
	return "diff"
}

func (d *Decoder) Configure(cfg decoder.Config) error {
	if err := cfg.Only("sign"); err != nil {
		return err
	}
	sign, err := cfg.Bool("sign", false)
	if err != nil {
		return err
	}

	d.cfg = cfg.Copy()
	d.sign = sign

	return nil
}

func (d *Decoder) Config() decoder.Config {
	return d.cfg.Copy()
}

func (d *Decoder) SetInputBps(bps uint8) error {
	if !decoder.ValidBps(bps) {
		return decoder.RejectBps(d.Name(), bps, "outside 1..8")
	}
	if bps != d.bps {
		d.prev = 0
	}
	d.bps = bps
	return nil
}

func (d *Decoder) OutputBps() uint8 {
	return d.bps
}

func (d *Decoder) Work(_ decoder.FrameID, in []decoder.Symbol) ([]decoder.Symbol, error) {
	if err := decoder.CheckSymbols(in, d.bps); err != nil {
		return nil, err
	}

	mask := decoder.Mask(d.bps)
	out := make([]decoder.Symbol, len(in))
	for idx, sym := range in {
		if d.sign {
			out[idx] = (d.prev - sym) & mask
		} else {
			out[idx] = (sym - d.prev) & mask
		}
		d.prev = sym
	}

	return out, nil
}

func (d *Decoder) State() string {
	return fmt.Sprintf("%d bps, sign=%v, last=%d", d.bps, d.sign, d.prev)
}
