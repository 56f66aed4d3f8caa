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

// Package sink writes frames leaving the symbol view.
package sink

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/xerrors"

	"github.com/bemasher/rtlsym/view"
)

const (
	TimeFormat = "2006-01-02T15:04:05.000"
)

// New returns the sink for the named output format: plain, csv or json.
func New(format string, w io.Writer) (view.Sink, error) {
	switch strings.ToLower(format) {
	case "plain":
		return Plain{w}, nil
	case "csv":
		return NewCSV(w), nil
	case "json":
		return NewJSON(w), nil
	}
	return nil, errors.Errorf("invalid output format: %q", format)
}

// Plain writes one human readable line per frame.
type Plain struct {
	w io.Writer
}

func (p Plain) Write(f view.Frame) (err error) {
	_, err = fmt.Fprintf(p.w, "{Time:%s Frame:%d Bps:%d Symbols:%s}\n",
		f.Time.Format(TimeFormat), f.ID, f.Bps, f,
	)
	return
}

// Record produces the fields of a frame's CSV row.
func Record(f view.Frame) (r []string) {
	r = append(r, f.Time.Format(time.RFC3339Nano))
	r = append(r, strconv.FormatUint(uint64(f.ID), 10))
	r = append(r, strconv.FormatUint(uint64(f.Bps), 10))
	r = append(r, f.String())
	return r
}

// CSV writes one record per frame.
type CSV struct {
	w *csv.Writer
}

func NewCSV(w io.Writer) *CSV {
	return &CSV{w: csv.NewWriter(w)}
}

func (c *CSV) Write(f view.Frame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = xerrors.Errorf("recovered: %v", r)
		}
	}()

	if err = c.w.Write(Record(f)); err != nil {
		return xerrors.Errorf("csv: %w", err)
	}
	c.w.Flush()

	return c.w.Error()
}

// JSONFrame is the encoded form of a frame.
type JSONFrame struct {
	Time    time.Time `json:"time"`
	Frame   uint64    `json:"frame"`
	Bps     uint8     `json:"bps"`
	Symbols []uint8   `json:"symbols"`
	Bits    string    `json:"bits"`
}

func NewJSONFrame(f view.Frame) JSONFrame {
	syms := make([]uint8, len(f.Symbols))
	for idx, sym := range f.Symbols {
		syms[idx] = uint8(sym)
	}
	return JSONFrame{f.Time, uint64(f.ID), f.Bps, syms, f.String()}
}

// JSON writes one object per line.
type JSON struct {
	enc *json.Encoder
}

func NewJSON(w io.Writer) *JSON {
	return &JSON{json.NewEncoder(w)}
}

func (j *JSON) Write(f view.Frame) error {
	return j.enc.Encode(NewJSONFrame(f))
}
