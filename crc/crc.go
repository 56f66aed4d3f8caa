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

// Package crc registers the "crc" decoder, which splits a byte stream into
// fixed length frames and passes only those with a valid checksum.
package crc

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bemasher/rtlsym/decoder"
)

// DefaultLength is the frame length in bytes, checksum included.
const DefaultLength = 16

func init() {
	decoder.Register("crc", "fixed length frame checksum filter", func() decoder.Objects {
		c := New()
		return decoder.Objects{Decoder: c, UI: decoder.StatusSurface{Label: "CRC", Decoder: c}}
	})
}

type CRC struct {
	Name    string
	Init    uint16
	Poly    uint16
	Residue uint16

	tbl Table
}

func NewCRC(name string, init, poly, residue uint16) (crc CRC) {
	crc.Name = name
	crc.Init = init
	crc.Poly = poly
	crc.Residue = residue
	crc.tbl = NewTable(crc.Poly)

	return
}

// Presets are the checksums selectable by name.
var Presets = map[string]CRC{
	"ccitt": NewCRC("ccitt", 0xFFFF, 0x1021, 0x1D0F),
	"bch":   NewCRC("bch", 0, 0x6F63, 0),
	"ibm":   NewCRC("ibm", 0, 0x8005, 0),
}

func (crc CRC) String() string {
	return fmt.Sprintf("{Name:%s Init:0x%04X Poly:0x%04X Residue:0x%04X}", crc.Name, crc.Init, crc.Poly, crc.Residue)
}

func (crc CRC) Checksum(data []byte) uint16 {
	return Checksum(crc.Init, data, crc.tbl)
}

// Valid reports whether a frame with its trailing checksum leaves the
// expected residue.
func (crc CRC) Valid(frame []byte) bool {
	return crc.Checksum(frame) == crc.Residue
}

type Table [256]uint16

func NewTable(poly uint16) (table Table) {
	for tIdx := range table {
		crc := uint16(tIdx) << 8
		for bIdx := 0; bIdx < 8; bIdx++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc = crc << 1
			}
		}
		table[tIdx] = crc
	}
	return table
}

func Checksum(init uint16, data []byte, table Table) (crc uint16) {
	crc = init
	for _, v := range data {
		crc = crc<<8 ^ table[crc>>8^uint16(v)]
	}
	return
}

// Filter collects bytes into frames of a fixed length. Frames whose
// checksum fails are dropped.
type Filter struct {
	cfg    decoder.Config
	crc    CRC
	length int
	strip  bool

	frame []byte
	good  uint64
	bad   uint64

	log *log.Entry
}

func New() *Filter {
	return &Filter{
		crc:    Presets["ccitt"],
		length: DefaultLength,
		log:    log.WithField("pkg", "crc"),
	}
}

func (f *Filter) Name() string {
	return "crc"
}

func (f *Filter) Configure(cfg decoder.Config) error {
	if err := cfg.Only("preset", "init", "poly", "residue", "length", "strip"); err != nil {
		return err
	}

	name, err := cfg.Text("preset", "ccitt")
	if err != nil {
		return err
	}
	preset, ok := Presets[strings.ToLower(name)]
	if !ok {
		return errors.Wrapf(decoder.ErrConfig, "preset: unknown checksum %q", name)
	}

	initial, err := cfg.IntRange("init", int(preset.Init), 0, 0xFFFF)
	if err != nil {
		return err
	}
	poly, err := cfg.IntRange("poly", int(preset.Poly), 1, 0xFFFF)
	if err != nil {
		return err
	}
	residue, err := cfg.IntRange("residue", int(preset.Residue), 0, 0xFFFF)
	if err != nil {
		return err
	}
	length, err := cfg.IntRange("length", DefaultLength, 3, 0xFFFF)
	if err != nil {
		return err
	}
	strip, err := cfg.Bool("strip", false)
	if err != nil {
		return err
	}

	f.cfg = cfg.Copy()
	f.crc = NewCRC(preset.Name, uint16(initial), uint16(poly), uint16(residue))
	f.length = length
	f.strip = strip
	f.frame = f.frame[:0]

	return nil
}

func (f *Filter) Config() decoder.Config {
	return f.cfg.Copy()
}

func (f *Filter) SetInputBps(bps uint8) error {
	if bps != 8 {
		return decoder.RejectBps(f.Name(), bps, "expects bytes")
	}
	return nil
}

func (f *Filter) OutputBps() uint8 {
	return 8
}

func (f *Filter) Work(frame decoder.FrameID, in []decoder.Symbol) ([]decoder.Symbol, error) {
	var out []decoder.Symbol

	for _, sym := range in {
		f.frame = append(f.frame, byte(sym))
		if len(f.frame) < f.length {
			continue
		}

		if !f.crc.Valid(f.frame) {
			f.bad++
			f.log.WithFields(log.Fields{"frame": frame, "checksum": fmt.Sprintf("0x%04X", f.crc.Checksum(f.frame))}).Debug("checksum failed")
			f.frame = f.frame[:0]
			continue
		}

		f.good++
		keep := f.frame
		if f.strip {
			keep = keep[:len(keep)-2]
		}
		for _, b := range keep {
			out = append(out, decoder.Symbol(b))
		}
		f.frame = f.frame[:0]
	}

	return out, nil
}

// Counts returns the number of frames passed and dropped.
func (f *Filter) Counts() (good, bad uint64) {
	return f.good, f.bad
}

func (f *Filter) State() string {
	return fmt.Sprintf("%s length %d: %d good, %d bad", f.crc.Name, f.length, f.good, f.bad)
}
