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

package view

import (
	"github.com/bemasher/rtlsym/decoder"
)

// Termination is the tail stage of a decoder stack. It accepts any valid
// width, delivers everything it receives to a SymbolView and produces no
// output of its own. Its output width mirrors its input so the stack reports
// the width the view renders at.
type Termination struct {
	view *SymbolView
	bps  uint8
}

func NewTermination(v *SymbolView) *Termination {
	return &Termination{view: v, bps: v.BitsPerSymbol()}
}

func (t *Termination) Name() string {
	return "termination"
}

// Configure accepts only an empty configuration.
func (t *Termination) Configure(cfg decoder.Config) error {
	return cfg.Only()
}

func (t *Termination) Config() decoder.Config {
	return decoder.Config{}
}

func (t *Termination) SetInputBps(bps uint8) error {
	if !decoder.ValidBps(bps) {
		return decoder.RejectBps(t.Name(), bps, "not representable")
	}

	t.bps = bps
	t.view.SetBitsPerSymbol(bps)

	return nil
}

func (t *Termination) OutputBps() uint8 {
	return t.bps
}

func (t *Termination) Work(frame decoder.FrameID, in []decoder.Symbol) ([]decoder.Symbol, error) {
	t.view.Feed(frame, in)
	return nil, nil
}

func (t *Termination) State() string {
	return "symbol view termination"
}

// View returns the view fed by t.
func (t *Termination) View() *SymbolView {
	return t.view
}
