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

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var (
	factoryMutex sync.Mutex
	factories    = make(map[string]Factory)
)

// ErrUnknown is returned when looking up a name no factory was registered
// under.
var ErrUnknown = errors.New("unknown decoder")

// NewFunc makes a new, unconfigured, decoder and its optional surface.
type NewFunc func() Objects

// Objects is everything a factory produces for one stack entry.
type Objects struct {
	Decoder Decoder

	// UI is nil for decoders without an auxiliary surface.
	UI Surface
}

// A Factory is a catalog entry.
type Factory struct {
	Name        string
	Description string

	fn NewFunc
}

// Make instantiates the decoder and applies cfg to it. A nil cfg keeps the
// decoder's defaults.
func (f Factory) Make(cfg Config) (Objects, error) {
	obj := f.fn()
	if obj.Decoder == nil {
		return Objects{}, errors.Errorf("%s: factory returned nil decoder", f.Name)
	}

	if cfg != nil {
		if err := obj.Decoder.Configure(cfg); err != nil {
			return Objects{}, errors.Wrapf(err, "%s", f.Name)
		}
	}

	return obj, nil
}

// Given a name, description and constructor, register a decoder for use.
// Decoder packages call this from init and are enabled by a blank import:
//
//	import _ "github.com/bemasher/rtlsym/diff"
func Register(name, description string, fn NewFunc) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()

	if fn == nil {
		panic("decoder: new decoder func is nil")
	}
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("decoder: decoder already registered (%s)", name))
	}
	factories[name] = Factory{name, description, fn}
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()

	f, exists := factories[name]
	if !exists {
		return Factory{}, errors.Wrapf(ErrUnknown, "%q", name)
	}
	return f, nil
}

// New looks up name and makes a decoder configured with cfg.
func New(name string, cfg Config) (Objects, error) {
	f, err := Lookup(name)
	if err != nil {
		return Objects{}, err
	}
	return f.Make(cfg)
}

// Catalog lists every registered factory sorted by name.
func Catalog() []Factory {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()

	catalog := make([]Factory, 0, len(factories))
	for _, f := range factories {
		catalog = append(catalog, f)
	}
	sort.Slice(catalog, func(i, j int) bool {
		return catalog[i].Name < catalog[j].Name
	})

	return catalog
}
