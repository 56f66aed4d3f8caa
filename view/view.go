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

// Package view holds decoded symbols for display and provides the stage that
// terminates every decoder stack.
package view

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bemasher/rtlsym/decoder"
)

// DefaultHistory is the number of symbols a view keeps when none is given.
const DefaultHistory = 4096

// A Frame is one buffer delivered to a sink.
type Frame struct {
	Time    time.Time
	ID      decoder.FrameID
	Bps     uint8
	Symbols []decoder.Symbol
}

// String formats each symbol as bps binary digits, space separated.
func (f Frame) String() string {
	return FormatSymbols(f.Symbols, f.Bps)
}

// A Sink consumes frames leaving the view. Sinks may fail; a failing sink
// never stops the view.
type Sink interface {
	Write(Frame) error
}

// FormatSymbols renders symbols as fixed width binary strings.
func FormatSymbols(syms []decoder.Symbol, bps uint8) string {
	if bps == 0 {
		bps = 1
	}

	var b strings.Builder
	for idx, sym := range syms {
		if idx > 0 && bps > 1 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%0*b", int(bps), uint8(sym))
	}
	return b.String()
}

// SymbolView keeps the most recent symbols and their width.
type SymbolView struct {
	bps     uint8
	history int
	syms    []decoder.Symbol
	total   uint64

	sinks []Sink
	log   *log.Entry
}

// NewSymbolView returns a view keeping up to history symbols.
func NewSymbolView(history int, sinks ...Sink) *SymbolView {
	if history <= 0 {
		history = DefaultHistory
	}

	return &SymbolView{
		bps:     1,
		history: history,
		sinks:   sinks,
		log:     log.WithField("pkg", "view"),
	}
}

// AddSink attaches another consumer.
func (v *SymbolView) AddSink(s Sink) {
	v.sinks = append(v.sinks, s)
}

// SetBitsPerSymbol changes the width used to render symbols. Changing width
// discards history since old symbols would be rendered wrong.
func (v *SymbolView) SetBitsPerSymbol(bps uint8) {
	if bps == 0 {
		bps = 1
	}
	if bps != v.bps {
		v.syms = v.syms[:0]
	}
	v.bps = bps
}

func (v *SymbolView) BitsPerSymbol() uint8 {
	return v.bps
}

// Feed appends symbols to the history and hands them to every sink.
func (v *SymbolView) Feed(frame decoder.FrameID, syms []decoder.Symbol) {
	if len(syms) == 0 {
		return
	}

	v.total += uint64(len(syms))
	v.syms = append(v.syms, syms...)
	if over := len(v.syms) - v.history; over > 0 {
		v.syms = append(v.syms[:0], v.syms[over:]...)
	}

	if len(v.sinks) == 0 {
		return
	}

	f := Frame{
		Time:    time.Now(),
		ID:      frame,
		Bps:     v.bps,
		Symbols: append([]decoder.Symbol(nil), syms...),
	}

	for _, s := range v.sinks {
		if err := s.Write(f); err != nil {
			v.log.WithField("frame", frame).Warn("sink write failed: ", err)
		}
	}
}

// Symbols returns a copy of the current history.
func (v *SymbolView) Symbols() []decoder.Symbol {
	return append([]decoder.Symbol(nil), v.syms...)
}

// Len is the number of symbols in the history.
func (v *SymbolView) Len() int {
	return len(v.syms)
}

// Total is the number of symbols fed since creation.
func (v *SymbolView) Total() uint64 {
	return v.total
}

// Bits is the number of bits represented by the history.
func (v *SymbolView) Bits() int {
	return len(v.syms) * int(v.bps)
}

func (v *SymbolView) String() string {
	return fmt.Sprintf("Size: %d symbols (%d bits)", v.Len(), v.Bits())
}
