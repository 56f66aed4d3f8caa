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

package main

import (
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/bemasher/rtlsym/decoder"
)

// LogArea hosts decoder surfaces by periodically writing them to the log.
type LogArea struct {
	surfaces map[uuid.UUID]decoder.Surface
	order    []uuid.UUID
	active   uuid.UUID

	log *log.Entry
}

func NewLogArea() *LogArea {
	return &LogArea{
		surfaces: make(map[uuid.UUID]decoder.Surface),
		log:      log.WithField("pkg", "area"),
	}
}

func (a *LogArea) Open(id uuid.UUID, s decoder.Surface) {
	if _, exists := a.surfaces[id]; !exists {
		a.order = append(a.order, id)
	}
	a.surfaces[id] = s
}

func (a *LogArea) Close(id uuid.UUID) {
	delete(a.surfaces, id)
	for idx, open := range a.order {
		if open == id {
			a.order = append(a.order[:idx], a.order[idx+1:]...)
			break
		}
	}
	if a.active == id {
		a.active = uuid.Nil
	}
}

func (a *LogArea) Activate(id uuid.UUID) {
	if _, exists := a.surfaces[id]; exists {
		a.active = id
	}
}

// Active returns the surface brought forward last, or nil.
func (a *LogArea) Active() decoder.Surface {
	return a.surfaces[a.active]
}

func (a *LogArea) Len() int {
	return len(a.order)
}

// Render logs every open surface in the order they were opened.
func (a *LogArea) Render() {
	for _, id := range a.order {
		s := a.surfaces[id]
		a.log.WithFields(log.Fields{
			"surface": s.Title(),
			"active":  id == a.active,
		}).Info(s.Render())
	}
}
