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

package stack

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fedSymbols = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtlsym_stack_fed_symbols_total",
		Help: "Symbols fed into a connected decoder stack",
	})

	droppedSymbols = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtlsym_stack_dropped_symbols_total",
		Help: "Symbols dropped because the decoder stack was not connected",
	})

	connectAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtlsym_stack_connect_attempts_total",
		Help: "Bit-width validation passes over the decoder stack",
	})

	connectFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtlsym_stack_connect_failures_total",
		Help: "Validation passes that left the decoder stack disconnected",
	})

	processFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtlsym_stack_process_failures_total",
		Help: "Buffers lost to a stage failing while processing",
	}, []string{"decoder"})

	readyGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rtlsym_stack_ready",
		Help: "1 if the last validation pass connected the decoder stack",
	})
)
