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

// Package controller applies user edits to a decoder stack and keeps it
// validated.
//
// Every edit (add, remove, move, toggle) rebuilds the stack from the entry
// list and reconnects it. Structure observers are notified after every
// rebuild whether or not the stack connected. A Controller is not safe for
// concurrent use; edits and feeds must come from one goroutine.
package controller

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bemasher/rtlsym/decoder"
	"github.com/bemasher/rtlsym/stack"
)

// ErrIndex is returned for an entry index outside the list.
var ErrIndex = errors.New("entry index out of range")

// ErrSurface is returned when closing a surface no entry owns.
var ErrSurface = errors.New("unknown surface")

// An Area hosts the auxiliary surfaces of stack entries.
type Area interface {
	Open(id uuid.UUID, s decoder.Surface)
	Close(id uuid.UUID)
	Activate(id uuid.UUID)
}

// An Entry is one row of the decoder stack.
type Entry struct {
	Name        string
	Description string

	Decoder decoder.Decoder
	UI      decoder.Surface

	// Surface is uuid.Nil for entries without a UI.
	Surface uuid.UUID

	// Failed is set when this entry broke the bit-width chain on the last
	// rebuild, or sits after the entry that did.
	Failed bool
}

// Controller owns the entry list and the stack built from it.
type Controller struct {
	stack   *stack.Stack
	entries []*Entry

	surfaces map[uuid.UUID]*Entry
	area     Area

	enabled bool
	ready   bool

	changed []func()
	toggled []func()

	log *log.Entry
}

// New returns an enabled controller whose stack ends in tail. The area may be
// nil if no surface host exists.
func New(tail decoder.Decoder, area Area) *Controller {
	c := &Controller{
		stack:    stack.New(tail),
		surfaces: make(map[uuid.UUID]*Entry),
		area:     area,
		enabled:  true,
		log:      log.WithField("pkg", "controller"),
	}

	c.Rebuild()

	return c
}

// OnStructureChanged registers fn to run after every rebuild.
func (c *Controller) OnStructureChanged(fn func()) {
	c.changed = append(c.changed, fn)
}

// OnEnabledChanged registers fn to run whenever the chain is toggled.
func (c *Controller) OnEnabledChanged(fn func()) {
	c.toggled = append(c.toggled, fn)
}

func (c *Controller) Enabled() bool {
	return c.enabled
}

// Ready reports the result of the last validation pass.
func (c *Controller) Ready() bool {
	return c.ready
}

// Len is the number of entries.
func (c *Controller) Len() int {
	return len(c.entries)
}

// Entries returns a snapshot of the entry list.
func (c *Controller) Entries() []Entry {
	entries := make([]Entry, len(c.entries))
	for idx, e := range c.entries {
		entries[idx] = *e
	}
	return entries
}

// Entry returns the entry at idx.
func (c *Controller) Entry(idx int) (Entry, error) {
	if err := c.checkIndex(idx); err != nil {
		return Entry{}, err
	}
	return *c.entries[idx], nil
}

// InputBps is the width of symbols arriving from the demodulator.
func (c *Controller) InputBps() uint8 {
	return c.stack.Bps()
}

// SetInputBps changes the demodulator width and rebuilds.
func (c *Controller) SetInputBps(bps uint8) {
	// Clearing first leaves the reconnect to Rebuild.
	c.stack.Clear()
	c.stack.SetBps(bps)
	c.Rebuild()
}

// OutputBps is the width of symbols reaching the consumer: the chain's
// output when enabled, the demodulator's when bypassed. It is 0 while an
// enabled chain is not ready.
func (c *Controller) OutputBps() uint8 {
	if !c.enabled {
		return c.stack.Bps()
	}
	return c.stack.OutputBps()
}

// Add makes a decoder from the named catalog entry, appends it and rebuilds.
// It returns the index of the new entry.
func (c *Controller) Add(name string, cfg decoder.Config) (int, error) {
	f, err := decoder.Lookup(name)
	if err != nil {
		return -1, err
	}

	obj, err := f.Make(cfg)
	if err != nil {
		return -1, err
	}

	e := &Entry{
		Name:        f.Name,
		Description: f.Description,
		Decoder:     obj.Decoder,
		UI:          obj.UI,
	}

	if e.UI != nil {
		e.Surface = uuid.New()
		c.surfaces[e.Surface] = e
		if c.area != nil {
			c.area.Open(e.Surface, e.UI)
			c.area.Activate(e.Surface)
		}
	}

	c.entries = append(c.entries, e)
	c.log.WithFields(log.Fields{"name": e.Name, "index": len(c.entries) - 1}).Info("decoder added")

	c.Rebuild()

	return len(c.entries) - 1, nil
}

// Remove closes the entry's surface, releases its decoder and rebuilds.
func (c *Controller) Remove(idx int) error {
	if err := c.checkIndex(idx); err != nil {
		return err
	}

	c.release(idx, true)
	c.Rebuild()

	return nil
}

// SurfaceClosed handles a surface closed directly by the user: the owning
// entry is removed as if Remove had been called. The area is not asked to
// close the surface again.
func (c *Controller) SurfaceClosed(id uuid.UUID) error {
	e, ok := c.surfaces[id]
	if !ok {
		return errors.Wrapf(ErrSurface, "%s", id)
	}

	idx := c.indexOf(e)
	if idx < 0 {
		delete(c.surfaces, id)
		return errors.Wrapf(ErrSurface, "%s: owner not in stack", id)
	}

	c.release(idx, false)
	c.Rebuild()

	return nil
}

// Move reorders an entry and rebuilds.
func (c *Controller) Move(from, to int) error {
	if err := c.checkIndex(from); err != nil {
		return err
	}
	if err := c.checkIndex(to); err != nil {
		return err
	}

	e := c.entries[from]
	copy(c.entries[from:], c.entries[from+1:])
	c.entries = c.entries[:len(c.entries)-1]

	c.entries = append(c.entries, nil)
	copy(c.entries[to+1:], c.entries[to:])
	c.entries[to] = e

	c.log.WithFields(log.Fields{"name": e.Name, "from": from, "to": to}).Debug("decoder moved")

	c.Rebuild()

	return nil
}

// Select brings the entry's surface forward, if it has one.
func (c *Controller) Select(idx int) error {
	if err := c.checkIndex(idx); err != nil {
		return err
	}

	e := c.entries[idx]
	if e.UI != nil && c.area != nil {
		c.area.Activate(e.Surface)
	}

	return nil
}

// Toggle flips between decoding and bypass.
func (c *Controller) Toggle() {
	c.SetEnabled(!c.enabled)
}

// SetEnabled switches between decoding and bypass, rebuilds, and notifies
// enabled observers since the output width may have changed.
func (c *Controller) SetEnabled(enabled bool) {
	c.enabled = enabled
	c.log.WithField("enabled", enabled).Info("decoder chain toggled")

	c.Rebuild()

	for _, fn := range c.toggled {
		fn()
	}
}

// Rebuild reconstructs the stack from the entry list and validates it. The
// entries that failed are flagged; the tail is never flagged since it has no
// entry.
func (c *Controller) Rebuild() {
	c.stack.Clear()

	for _, e := range c.entries {
		e.Failed = false
		c.stack.Push(e.Decoder)
	}

	err := c.stack.Connect()
	c.ready = err == nil

	for _, idx := range c.stack.Failed() {
		if idx < len(c.entries) {
			c.entries[idx].Failed = true
		}
	}

	// Bypassed symbols skip the chain and go straight to the tail, which
	// must render them at the demodulator's width.
	if !c.enabled {
		if err := c.stack.Tail().SetInputBps(c.stack.Bps()); err != nil {
			c.log.Warn("tail rejected demodulator width: ", err)
		}
	}

	for _, fn := range c.changed {
		fn()
	}
}

// Feed delivers demodulated symbols. With the chain enabled they run through
// the stack, followed by a flush even if the feed failed. The first error is
// returned. Bypassed symbols go to the tail directly.
func (c *Controller) Feed(syms []decoder.Symbol) error {
	if !c.enabled {
		return c.stack.Bypass(syms)
	}

	err := c.stack.Feed(syms)
	if ferr := c.stack.Flush(); err == nil {
		err = ferr
	}

	return err
}

// Close releases every entry and closes every surface.
func (c *Controller) Close() {
	for len(c.entries) > 0 {
		c.release(0, true)
	}
	c.Rebuild()
}

func (c *Controller) release(idx int, closeSurface bool) {
	e := c.entries[idx]

	if e.UI != nil {
		delete(c.surfaces, e.Surface)
		if closeSurface && c.area != nil {
			c.area.Close(e.Surface)
		}
	}

	copy(c.entries[idx:], c.entries[idx+1:])
	c.entries[len(c.entries)-1] = nil
	c.entries = c.entries[:len(c.entries)-1]

	if closer, ok := e.Decoder.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			c.log.WithField("name", e.Name).Warn("releasing decoder: ", err)
		}
	}

	c.log.WithFields(log.Fields{"name": e.Name, "index": idx}).Info("decoder removed")
}

func (c *Controller) indexOf(e *Entry) int {
	for idx, entry := range c.entries {
		if entry == e {
			return idx
		}
	}
	return -1
}

func (c *Controller) checkIndex(idx int) error {
	if idx < 0 || idx >= len(c.entries) {
		return errors.Wrapf(ErrIndex, "%d not in [0, %d)", idx, len(c.entries))
	}
	return nil
}
