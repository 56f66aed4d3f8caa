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
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Config is the configuration blob of a stage. Only the stage that owns it
// interprets the keys.
type Config map[string]interface{}

// Copy returns a shallow copy of c. A nil config copies to an empty one.
func (c Config) Copy() Config {
	dup := make(Config, len(c))
	for k, v := range c {
		dup[k] = v
	}
	return dup
}

// Keys returns the keys of c in sorted order.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Only returns an ErrConfig error naming the first key of c not in allowed.
func (c Config) Only(allowed ...string) error {
	known := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		known[k] = true
	}

	var unknown []string
	for _, k := range c.Keys() {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}

	if len(unknown) > 0 {
		return errors.Wrapf(ErrConfig, "unknown keys: %s", strings.Join(unknown, ","))
	}
	return nil
}

// Int returns the integer stored under key, or def if the key is absent.
// Values decoded from YAML (int) and JSON (float64) are both accepted.
func (c Config) Int(key string, def int) (int, error) {
	v, ok := c[key]
	if !ok {
		return def, nil
	}

	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float32:
		return floatInt(key, float64(n))
	case float64:
		return floatInt(key, n)
	}

	return def, errors.Wrapf(ErrConfig, "%s: expected integer, got %T", key, v)
}

func floatInt(key string, f float64) (int, error) {
	if f != math.Trunc(f) {
		return 0, errors.Wrapf(ErrConfig, "%s: %g is not an integer", key, f)
	}
	return int(f), nil
}

// IntRange is Int restricted to [lo, hi].
func (c Config) IntRange(key string, def, lo, hi int) (int, error) {
	n, err := c.Int(key, def)
	if err != nil {
		return def, err
	}
	if n < lo || n > hi {
		return def, errors.Wrapf(ErrConfig, "%s: %d outside [%d, %d]", key, n, lo, hi)
	}
	return n, nil
}

// Bool returns the boolean stored under key, or def if the key is absent.
func (c Config) Bool(key string, def bool) (bool, error) {
	v, ok := c[key]
	if !ok {
		return def, nil
	}

	b, ok := v.(bool)
	if !ok {
		return def, errors.Wrapf(ErrConfig, "%s: expected boolean, got %T", key, v)
	}
	return b, nil
}

// Text returns the string stored under key, or def if the key is absent.
func (c Config) Text(key string, def string) (string, error) {
	v, ok := c[key]
	if !ok {
		return def, nil
	}

	str, ok := v.(string)
	if !ok {
		return def, errors.Wrapf(ErrConfig, "%s: expected string, got %T", key, v)
	}
	return str, nil
}

// Ints returns the list of integers stored under key, or def if the key is
// absent.
func (c Config) Ints(key string, def []int) ([]int, error) {
	v, ok := c[key]
	if !ok {
		return def, nil
	}

	var items []interface{}
	switch l := v.(type) {
	case []interface{}:
		items = l
	case []int:
		return append([]int(nil), l...), nil
	default:
		return def, errors.Wrapf(ErrConfig, "%s: expected list, got %T", key, v)
	}

	ints := make([]int, len(items))
	for idx, item := range items {
		n, err := Config{key: item}.Int(key, 0)
		if err != nil {
			return def, err
		}
		ints[idx] = n
	}
	return ints, nil
}
