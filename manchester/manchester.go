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

// Package manchester registers the "manchester" decoder, which turns pairs of
// chips into bits.
package manchester

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/bemasher/rtlsym/decoder"
)

func init() {
	decoder.Register("manchester", "Manchester decoder", func() decoder.Objects {
		d := New()
		return decoder.Objects{Decoder: d, UI: decoder.StatusSurface{Label: "Manchester", Decoder: d}}
	})
}

// Decoder maps the chip pair 10 to 1 and 01 to 0, or the reverse under the
// IEEE 802.3 convention. A pair of equal chips is a violation: the first chip
// is dropped so the decoder slips back into alignment.
type Decoder struct {
	cfg  decoder.Config
	ieee bool

	pending    []decoder.Symbol
	violations uint64

	log *log.Entry
}

func New() *Decoder {
	return &Decoder{log: log.WithField("pkg", "manchester")}
}

func (d *Decoder) Name() string {
	return "manchester"
}

func (d *Decoder) Configure(cfg decoder.Config) error {
	if err := cfg.Only("ieee"); err != nil {
		return err
	}
	ieee, err := cfg.Bool("ieee", false)
	if err != nil {
		return err
	}

	d.cfg = cfg.Copy()
	d.ieee = ieee

	return nil
}

func (d *Decoder) Config() decoder.Config {
	return d.cfg.Copy()
}

func (d *Decoder) SetInputBps(bps uint8) error {
	if bps != 1 {
		return decoder.RejectBps(d.Name(), bps, "expects a chip stream")
	}
	return nil
}

func (d *Decoder) OutputBps() uint8 {
	return 1
}

func (d *Decoder) Work(frame decoder.FrameID, in []decoder.Symbol) ([]decoder.Symbol, error) {
	if err := decoder.CheckSymbols(in, 1); err != nil {
		return nil, err
	}

	chips := append(d.pending, in...)
	out := make([]decoder.Symbol, 0, len(chips)>>1)

	var slipped uint64
	idx := 0
	for idx+1 < len(chips) {
		first, second := chips[idx], chips[idx+1]
		if first == second {
			slipped++
			idx++
			continue
		}

		bit := first
		if d.ieee {
			bit = second
		}
		out = append(out, bit)
		idx += 2
	}

	d.pending = append(d.pending[:0:0], chips[idx:]...)

	if slipped > 0 {
		d.violations += slipped
		d.log.WithFields(log.Fields{"frame": frame, "slipped": slipped}).Debug("coding violations")
	}

	return out, nil
}

// Violations is the number of invalid chip pairs seen so far.
func (d *Decoder) Violations() uint64 {
	return d.violations
}

func (d *Decoder) State() string {
	convention := "thomas"
	if d.ieee {
		convention = "ieee"
	}
	return fmt.Sprintf("%s, %d violations", convention, d.violations)
}
