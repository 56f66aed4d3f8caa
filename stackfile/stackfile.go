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

// Package stackfile reads and writes decoder stack definitions as YAML.
//
//	bps: 1
//	enabled: true
//	decoders:
//	  - name: preamble
//	    config: {pattern: "0001011010100011", length: 64}
//	  - name: manchester
//	    config: {ieee: true}
//	  - name: pack
//	    config: {bits: 8}
//
// Decoder configurations are stored verbatim; only the decoders interpret
// them. Bit patterns must be quoted or YAML reads them as integers.
package stackfile

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/bemasher/rtlsym/controller"
	"github.com/bemasher/rtlsym/decoder"
)

// File is a stack definition.
type File struct {
	Bps      uint8   `yaml:"bps"`
	Enabled  *bool   `yaml:"enabled,omitempty"`
	Decoders []Entry `yaml:"decoders"`
}

// Entry is one decoder of a stack definition.
type Entry struct {
	Name   string         `yaml:"name"`
	Config decoder.Config `yaml:"config,omitempty"`
}

// Decode reads a definition from r.
func Decode(r io.Reader) (f File, err error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err = dec.Decode(&f); err != nil && err != io.EOF {
		return f, errors.Wrap(err, "stackfile: decoding")
	}

	for idx, e := range f.Decoders {
		if e.Name == "" {
			return f, errors.Errorf("stackfile: decoder %d has no name", idx)
		}
	}

	return f, nil
}

// Load reads the definition at path.
func Load(path string) (File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return File{}, errors.Wrap(err, "stackfile")
	}
	defer fd.Close()

	return Decode(fd)
}

// Encode writes f to w.
func (f File) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(f); err != nil {
		return errors.Wrap(err, "stackfile: encoding")
	}
	return enc.Close()
}

// Save writes f to path.
func (f File) Save(path string) error {
	fd, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "stackfile")
	}

	if err := f.Encode(fd); err != nil {
		fd.Close()
		return err
	}
	return fd.Close()
}

// Apply adds every decoder of f to c in order. A zero Bps keeps the
// controller's input width. Decoders that cannot be made stop the apply;
// the ones already added stay.
func (f File) Apply(c *controller.Controller) error {
	if f.Bps != 0 {
		c.SetInputBps(f.Bps)
	}

	for idx, e := range f.Decoders {
		if _, err := c.Add(e.Name, e.Config); err != nil {
			return errors.Wrapf(err, "stackfile: decoder %d", idx)
		}
	}

	if f.Enabled != nil && *f.Enabled != c.Enabled() {
		c.SetEnabled(*f.Enabled)
	}

	return nil
}

// Snapshot captures the current stack of c.
func Snapshot(c *controller.Controller) File {
	enabled := c.Enabled()
	f := File{
		Bps:     c.InputBps(),
		Enabled: &enabled,
	}

	for _, e := range c.Entries() {
		cfg := e.Decoder.Config()
		if len(cfg) == 0 {
			cfg = nil
		}
		f.Decoders = append(f.Decoders, Entry{e.Name, cfg})
	}

	return f
}
