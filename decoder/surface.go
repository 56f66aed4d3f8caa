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

package decoder

import "fmt"

// A Surface is an auxiliary view of a decoder, such as a window showing its
// state. Surfaces are hosted outside the stack and may be closed by the user
// at any time.
type Surface interface {
	Title() string
	Render() string
}

// StatusSurface renders the state string of a decoder.
type StatusSurface struct {
	Label   string
	Decoder Decoder
}

func (s StatusSurface) Title() string {
	return s.Label
}

func (s StatusSurface) Render() string {
	return fmt.Sprintf("%s: %s", s.Label, s.Decoder.State())
}
