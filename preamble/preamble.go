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

// Package preamble registers the "preamble" decoder. It searches a bit
// stream for a sync word and passes a fixed number of bits following each
// match, discarding everything in between.
package preamble

import (
	"fmt"
	"math/bits"

	"github.com/pkg/errors"

	"github.com/bemasher/rtlsym/decoder"
)

const (
	// DefaultPattern is the sync word of SCM+ and IDM messages.
	DefaultPattern = "0001011010100011"
	DefaultLength  = 64

	// MaxPattern is the longest sync word that fits the search register.
	MaxPattern = 64
)

func init() {
	decoder.Register("preamble", "sync word search and framing", func() decoder.Objects {
		d := New()
		return decoder.Objects{Decoder: d, UI: decoder.StatusSurface{Label: "Preamble", Decoder: d}}
	})
}

// Detector slides the last len(pattern) bits past the pattern. Once a match
// is found, within the allowed number of bit errors, it captures length bits
// before searching again.
type Detector struct {
	cfg decoder.Config

	pattern string
	word    uint64
	mask    uint64
	length  int
	errors  int
	keep    bool

	reg       uint64
	seen      int
	remaining int
	matches   uint64
}

func New() *Detector {
	d := &Detector{length: DefaultLength}
	d.setPattern(DefaultPattern)
	return d
}

func (d *Detector) setPattern(pattern string) {
	d.pattern = pattern
	d.word = 0
	for _, bit := range pattern {
		d.word <<= 1
		if bit == '1' {
			d.word |= 1
		}
	}

	d.mask = ^uint64(0)
	if len(pattern) < 64 {
		d.mask = 1<<uint(len(pattern)) - 1
	}

	d.reset()
}

func (d *Detector) reset() {
	d.reg, d.seen, d.remaining = 0, 0, 0
}

func (d *Detector) Name() string {
	return "preamble"
}

func (d *Detector) Configure(cfg decoder.Config) error {
	if err := cfg.Only("pattern", "length", "errors", "keep"); err != nil {
		return err
	}

	// YAML reads an unquoted run of digits as a number.
	pattern, err := cfg.Text("pattern", DefaultPattern)
	if err != nil {
		return errors.Wrap(err, `quote the pattern so it reads as text, e.g. pattern: "0110"`)
	}
	if len(pattern) == 0 || len(pattern) > MaxPattern {
		return errors.Wrapf(decoder.ErrConfig, "pattern: length %d outside [1, %d]", len(pattern), MaxPattern)
	}
	for _, bit := range pattern {
		if bit != '0' && bit != '1' {
			return errors.Wrapf(decoder.ErrConfig, "pattern: %q is not binary", pattern)
		}
	}

	length, err := cfg.IntRange("length", DefaultLength, 1, 1<<20)
	if err != nil {
		return err
	}
	maxErrors, err := cfg.IntRange("errors", 0, 0, len(pattern)-1)
	if err != nil {
		return err
	}
	keep, err := cfg.Bool("keep", false)
	if err != nil {
		return err
	}

	d.cfg = cfg.Copy()
	d.length, d.errors, d.keep = length, maxErrors, keep
	d.setPattern(pattern)

	return nil
}

func (d *Detector) Config() decoder.Config {
	return d.cfg.Copy()
}

func (d *Detector) SetInputBps(bps uint8) error {
	if bps != 1 {
		return decoder.RejectBps(d.Name(), bps, "expects a bit stream")
	}
	return nil
}

func (d *Detector) OutputBps() uint8 {
	return 1
}

func (d *Detector) Work(_ decoder.FrameID, in []decoder.Symbol) ([]decoder.Symbol, error) {
	if err := decoder.CheckSymbols(in, 1); err != nil {
		return nil, err
	}

	var out []decoder.Symbol
	for _, bit := range in {
		if d.remaining > 0 {
			out = append(out, bit)
			d.remaining--
			continue
		}

		d.reg = d.reg<<1 | uint64(bit)
		if d.seen < len(d.pattern) {
			d.seen++
			if d.seen < len(d.pattern) {
				continue
			}
		}

		if bits.OnesCount64((d.reg^d.word)&d.mask) > d.errors {
			continue
		}

		d.matches++
		if d.keep {
			for idx := len(d.pattern) - 1; idx >= 0; idx-- {
				out = append(out, decoder.Symbol(d.reg>>uint(idx)&1))
			}
		}
		d.reg, d.seen = 0, 0
		d.remaining = d.length
	}

	return out, nil
}

// Matches is the number of sync words found.
func (d *Detector) Matches() uint64 {
	return d.matches
}

func (d *Detector) State() string {
	if d.remaining > 0 {
		return fmt.Sprintf("capturing %d/%d bits, %d matches", d.length-d.remaining, d.length, d.matches)
	}
	return fmt.Sprintf("searching for %s, %d matches", d.pattern, d.matches)
}
