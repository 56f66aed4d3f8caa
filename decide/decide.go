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

// Package decide turns rtl-sdr IQ samples into multi-level symbols: the
// magnitude of each sample is integrated over a symbol period and the result
// is sliced against peak-tracking levels.
package decide

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bemasher/rtlsym/decoder"
)

// DefaultDecay is the fraction of the level span the peak trackers relax by
// per symbol.
const DefaultDecay = 1.0 / 256

// Symbols per block, before rounding the block up to a power of two.
const blockSymbols = 128

// A Demodulator knows how to demodulate an array of uint8 IQ samples into an
// array of float64 samples.
type Demodulator interface {
	Execute([]byte, []float64)
}

// Default Magnitude Lookup Table
type MagLUT []float64

// Pre-computes normalized squares with most common DC offset for rtl-sdr dongles.
func NewMagLUT() (lut MagLUT) {
	lut = make([]float64, 0x100)
	for idx := range lut {
		lut[idx] = (127.5 - float64(idx)) / 127.5
		lut[idx] *= lut[idx]
	}
	return
}

// Calculates complex magnitude on given IQ stream writing result to output.
func (lut MagLUT) Execute(input []byte, output []float64) {
	i := 0
	for idx := range output {
		output[idx] = lut[input[i]] + lut[input[i+1]]
		i += 2
	}
}

// Config specifies the symbol timing and alphabet of the demodulator.
type Config struct {
	SymbolLength int
	Bps          uint8

	// BlockSize is the number of complex samples per block. Zero picks a
	// power of two holding roughly blockSymbols symbols.
	BlockSize int

	// Decay is how fast the peak trackers relax, zero picks DefaultDecay.
	Decay float64
}

// Decider contains buffers and demodulator state. Integration phase and
// levels carry from one block to the next.
type Decider struct {
	Cfg Config

	demod  Demodulator
	signal []float64

	sum float64
	n   int

	lo, hi float64
	primed bool
}

func New(cfg Config) (*Decider, error) {
	if cfg.SymbolLength < 1 {
		return nil, errors.Errorf("decide: symbol length %d must be positive", cfg.SymbolLength)
	}
	if !decoder.ValidBps(cfg.Bps) {
		return nil, errors.Wrapf(decoder.ErrBps, "decide: %d", cfg.Bps)
	}
	if cfg.BlockSize == 0 {
		cfg.BlockSize = NextPowerOf2(cfg.SymbolLength * blockSymbols)
	}
	if cfg.BlockSize < 1 {
		return nil, errors.Errorf("decide: block size %d must be positive", cfg.BlockSize)
	}
	if cfg.Decay <= 0 || cfg.Decay >= 1 {
		cfg.Decay = DefaultDecay
	}

	return &Decider{
		Cfg:    cfg,
		demod:  NewMagLUT(),
		signal: make([]float64, cfg.BlockSize),
	}, nil
}

func (d *Decider) Log() {
	log.WithFields(log.Fields{
		"pkg":          "decide",
		"symbollength": d.Cfg.SymbolLength,
		"bps":          d.Cfg.Bps,
		"blocksize":    d.Cfg.BlockSize,
		"decay":        d.Cfg.Decay,
	}).Info("demodulator configured")
}

// Bps is the width of the symbols produced by Decide.
func (d *Decider) Bps() uint8 {
	return d.Cfg.Bps
}

// BlockBytes is the length of the IQ buffer Decide expects.
func (d *Decider) BlockBytes() int {
	return d.Cfg.BlockSize << 1
}

// Decide demodulates a block of interleaved IQ bytes. Symbols whose period
// straddles the end of the block are completed by the next call.
func (d *Decider) Decide(block []byte) []decoder.Symbol {
	samples := len(block) >> 1
	if samples > len(d.signal) {
		d.signal = make([]float64, samples)
	}
	signal := d.signal[:samples]

	d.demod.Execute(block, signal)

	syms := make([]decoder.Symbol, 0, (d.n+samples)/d.Cfg.SymbolLength)
	for _, v := range signal {
		d.sum += v
		d.n++

		if d.n == d.Cfg.SymbolLength {
			syms = append(syms, d.decide(d.sum/float64(d.n)))
			d.sum, d.n = 0, 0
		}
	}

	return syms
}

// Track the extremes of integrated symbols, relaxing them toward each other
// so the levels follow fading signals.
func (d *Decider) track(v float64) {
	if !d.primed {
		d.lo, d.hi = v, v
		d.primed = true
		return
	}

	relax := (d.hi - d.lo) * d.Cfg.Decay
	d.hi -= relax
	d.lo += relax

	if v > d.hi {
		d.hi = v
	}
	if v < d.lo {
		d.lo = v
	}
}

func (d *Decider) decide(v float64) decoder.Symbol {
	d.track(v)

	span := d.hi - d.lo
	if span <= 0 {
		return 0
	}

	levels := float64(int(1) << d.Cfg.Bps)
	level := int((v - d.lo) / span * levels)
	if top := int(decoder.Mask(d.Cfg.Bps)); level > top {
		level = top
	}
	if level < 0 {
		level = 0
	}

	return decoder.Symbol(level)
}

// Levels returns the current low and high peak trackers.
func (d *Decider) Levels() (lo, hi float64) {
	return d.lo, d.hi
}

func (d *Decider) String() string {
	return fmt.Sprintf("{SymbolLength:%d Bps:%d Lo:%0.4f Hi:%0.4f}", d.Cfg.SymbolLength, d.Cfg.Bps, d.lo, d.hi)
}

func NextPowerOf2(v int) int {
	return 1 << uint(math.Ceil(math.Log2(float64(v))))
}
