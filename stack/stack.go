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

// Package stack runs symbols through an ordered list of decoders.
//
// A stack holds user stages followed by a tail stage given at construction.
// Connect offers the global input width to the first stage and each stage's
// output width to the one after it. The first stage to refuse, and everything
// after it, is marked failed and the stack will not process data until a later
// Connect succeeds. There is no backtracking: a stage is only ever offered the
// width its predecessor declared.
//
// A Stack is not safe for concurrent use. Feeds and structural changes must be
// serialized by the caller.
package stack

import (
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bemasher/rtlsym/decoder"
)

// State of a stack.
type State int

const (
	Empty State = iota
	Assembling
	Connected
	Disconnected
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Assembling:
		return "assembling"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// A ConnectError reports the stage that broke the bit-width chain.
type ConnectError struct {
	Index int
	Name  string
	Bps   uint8
	Err   error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("stage %d (%s) rejected %d bps: %v", e.Index, e.Name, e.Bps, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// A ProcessError reports a stage that failed while working on a buffer. The
// stack stays connected; only the buffer in flight is lost.
type ProcessError struct {
	Index int
	Name  string
	Frame decoder.FrameID
	Err   error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("stage %d (%s) failed on frame %d: %v", e.Index, e.Name, e.Frame, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// Stack is a decoder pipeline terminated by a fixed tail stage.
type Stack struct {
	bps    uint8
	stages []decoder.Decoder
	tail   decoder.Decoder

	state  State
	failed int
	frame  decoder.FrameID

	log *log.Entry
}

// New returns an empty stack terminated by tail. The tail is never released
// by the stack.
func New(tail decoder.Decoder) *Stack {
	if tail == nil {
		panic("stack: tail decoder is nil")
	}

	return &Stack{
		bps:    1,
		tail:   tail,
		failed: -1,
		log:    log.WithField("pkg", "stack"),
	}
}

// Push appends a stage before the tail.
func (s *Stack) Push(d decoder.Decoder) {
	if d == nil {
		panic("stack: pushed decoder is nil")
	}

	s.stages = append(s.stages, d)
	s.state = Assembling
	s.failed = -1
}

// Clear removes every user stage.
func (s *Stack) Clear() {
	s.stages = s.stages[:0]
	s.state = Empty
	s.failed = -1
}

// Len is the number of stages including the tail.
func (s *Stack) Len() int {
	return len(s.stages) + 1
}

// At returns the stage at index idx, the tail being at Len()-1.
func (s *Stack) At(idx int) decoder.Decoder {
	if idx == len(s.stages) {
		return s.tail
	}
	return s.stages[idx]
}

// Tail returns the tail stage.
func (s *Stack) Tail() decoder.Decoder {
	return s.tail
}

func (s *Stack) State() State {
	return s.state
}

// Ready reports whether the stack processes data.
func (s *Stack) Ready() bool {
	return s.state == Connected
}

// Bps is the global input width.
func (s *Stack) Bps() uint8 {
	return s.bps
}

// SetBps changes the global input width and reconnects if any stage was
// pushed since the last Clear.
func (s *Stack) SetBps(bps uint8) error {
	s.bps = bps
	if s.state == Empty {
		return nil
	}
	return s.Connect()
}

// OutputBps is the width produced by the tail, or 0 when not connected.
func (s *Stack) OutputBps() uint8 {
	if s.state != Connected {
		return 0
	}
	return s.tail.OutputBps()
}

// Failed returns the indices of every stage marked failed by the last
// Connect. The tail, if failed, has index Len()-1.
func (s *Stack) Failed() []int {
	if s.failed < 0 {
		return nil
	}

	failed := make([]int, 0, s.Len()-s.failed)
	for idx := s.failed; idx < s.Len(); idx++ {
		failed = append(failed, idx)
	}
	return failed
}

// Connect validates the chain left to right. It returns a *ConnectError for
// the first stage refusing the width offered by its predecessor.
func (s *Stack) Connect() error {
	connectAttempts.Inc()

	bps := s.bps
	for idx := 0; idx < s.Len(); idx++ {
		stage := s.At(idx)

		if err := stage.SetInputBps(bps); err != nil {
			s.state = Disconnected
			s.failed = idx
			readyGauge.Set(0)
			connectFailures.Inc()

			cerr := &ConnectError{idx, stage.Name(), bps, err}
			s.log.WithFields(log.Fields{
				"stage": idx,
				"name":  stage.Name(),
				"bps":   bps,
			}).Warn("stack disconnected: ", err)

			return cerr
		}

		bps = stage.OutputBps()
	}

	s.state = Connected
	s.failed = -1
	readyGauge.Set(1)

	s.log.WithFields(log.Fields{
		"stages": len(s.stages),
		"in":     s.bps,
		"out":    bps,
	}).Debug("stack connected")

	return nil
}

// Feed runs a buffer through every stage. A disconnected stack drops the
// buffer and returns nil. A stage failure stops this buffer only and is
// reported as a *ProcessError.
func (s *Stack) Feed(syms []decoder.Symbol) error {
	if s.state != Connected {
		droppedSymbols.Add(float64(len(syms)))
		return nil
	}

	s.frame++
	fedSymbols.Add(float64(len(syms)))

	return s.run(0, syms)
}

// Flush gives every buffering stage the chance to emit held back output,
// which is run through the stages after it. Every flusher is drained even
// when a downstream stage fails; the first failure is returned.
func (s *Stack) Flush() (err error) {
	if s.state != Connected {
		return nil
	}

	for idx := 0; idx < s.Len(); idx++ {
		f, ok := s.At(idx).(decoder.Flusher)
		if !ok {
			continue
		}

		pending := f.Flush()
		if len(pending) == 0 || idx+1 == s.Len() {
			continue
		}

		if perr := s.run(idx+1, pending); perr != nil && err == nil {
			err = perr
		}
	}

	return err
}

// Bypass hands a buffer straight to the tail under a new frame id, skipping
// every user stage. It works whether or not the stack is connected.
func (s *Stack) Bypass(syms []decoder.Symbol) error {
	s.frame++
	fedSymbols.Add(float64(len(syms)))

	return s.run(s.Len()-1, syms)
}

// Frame is the id of the last buffer fed or bypassed.
func (s *Stack) Frame() decoder.FrameID {
	return s.frame
}

func (s *Stack) run(start int, buf []decoder.Symbol) error {
	for idx := start; idx < s.Len() && len(buf) > 0; idx++ {
		stage := s.At(idx)

		out, err := stage.Work(s.frame, buf)
		if err != nil {
			processFailures.WithLabelValues(stage.Name()).Inc()

			perr := &ProcessError{idx, stage.Name(), s.frame, err}
			s.log.WithFields(log.Fields{
				"stage": idx,
				"name":  stage.Name(),
				"frame": s.frame,
			}).Warn("stage failed: ", err)

			return perr
		}

		buf = out
	}

	return nil
}

// IsConnectError reports whether err is, or wraps, a *ConnectError.
func IsConnectError(err error) bool {
	var cerr *ConnectError
	return errors.As(err, &cerr)
}

// IsProcessError reports whether err is, or wraps, a *ProcessError.
func IsProcessError(err error) bool {
	var perr *ProcessError
	return errors.As(err, &perr)
}
