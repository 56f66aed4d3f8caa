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

// Package decoder defines the stages a decoder stack is built from and the
// registry of factories that produce them.
package decoder

import (
	"github.com/pkg/errors"
)

// MaxBps is the widest symbol a stage may declare. Symbols are carried one
// per byte.
const MaxBps = 8

var (
	// ErrConfig is wrapped by errors returned from Configure.
	ErrConfig = errors.New("invalid decoder configuration")

	// ErrBps is wrapped by errors returned from SetInputBps.
	ErrBps = errors.New("unsupported bits per symbol")

	// ErrSymbol is returned by Work when a symbol exceeds the declared input
	// width.
	ErrSymbol = errors.New("symbol out of range")
)

// Symbol holds the value of one symbol in its low bits.
type Symbol uint8

// FrameID identifies a single buffer fed through a stack.
type FrameID uint64

// A Decoder is one stage of a decoder stack. It consumes symbols of its input
// width and produces symbols of its output width.
type Decoder interface {
	// Name is the catalog name of the stage.
	Name() string

	// Configure replaces the current configuration. On error the previous
	// configuration is left intact.
	Configure(Config) error

	// Config returns a copy of the current configuration.
	Config() Config

	// SetInputBps declares the width of incoming symbols. A rejected width
	// leaves the stage untouched.
	SetInputBps(bps uint8) error

	// OutputBps is the width of symbols produced by Work.
	OutputBps() uint8

	// Work consumes a buffer and returns the symbols for the next stage.
	Work(frame FrameID, in []Symbol) ([]Symbol, error)

	// State is a diagnostic description of the stage.
	State() string
}

// A Flusher emits output held back by a stage with internal buffering.
type Flusher interface {
	Flush() []Symbol
}

// Mask returns the largest symbol value representable with bps bits.
func Mask(bps uint8) Symbol {
	if bps >= MaxBps {
		return 0xFF
	}
	return Symbol(1)<<bps - 1
}

// ValidBps reports whether bps is a width a symbol can hold.
func ValidBps(bps uint8) bool {
	return bps > 0 && bps <= MaxBps
}

// CheckSymbols returns an ErrSymbol error if any symbol in buf exceeds bps
// bits.
func CheckSymbols(buf []Symbol, bps uint8) error {
	mask := Mask(bps)
	for idx, sym := range buf {
		if sym&^mask != 0 {
			return errors.Wrapf(ErrSymbol, "symbol %d is 0x%02X at %d bps", idx, uint8(sym), bps)
		}
	}
	return nil
}

// RejectBps builds the error returned by SetInputBps implementations.
func RejectBps(name string, bps uint8, reason string) error {
	return errors.Wrapf(ErrBps, "%s: %d bps: %s", name, bps, reason)
}
