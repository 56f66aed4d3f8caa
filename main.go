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
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/bemasher/rtlsym/controller"
	"github.com/bemasher/rtlsym/decide"
	"github.com/bemasher/rtlsym/decoder"
	"github.com/bemasher/rtlsym/sink"
	"github.com/bemasher/rtlsym/stackfile"
	"github.com/bemasher/rtlsym/view"
	"github.com/bemasher/rtltcp"

	_ "github.com/bemasher/rtlsym/crc"
	_ "github.com/bemasher/rtlsym/diff"
	_ "github.com/bemasher/rtlsym/manchester"
	_ "github.com/bemasher/rtlsym/pack"
	_ "github.com/bemasher/rtlsym/preamble"
	_ "github.com/bemasher/rtlsym/scrambler"
)

const (
	DefaultCenterFreq = 433920000
	DefaultSampleRate = 2359296
)

var rcvr Receiver

type Receiver struct {
	rtltcp.SDR
	src io.ReadCloser

	d    *decide.Decider
	view *view.SymbolView
	area *LogArea
	ctrl *controller.Controller

	mqtt mqtt.Client

	stop chan struct{}
}

func (rcvr *Receiver) NewReceiver() {
	var err error

	rcvr.stop = make(chan struct{}, 1)

	rcvr.d, err = decide.New(decide.Config{
		SymbolLength: *symbolLength,
		Bps:          uint8(*bps),
		Decay:        *decay,
	})
	if err != nil {
		log.Fatal(err)
	}

	rcvr.view = view.NewSymbolView(*history, output)
	if *mqttBroker != "" {
		rcvr.mqtt, err = sink.DialMQTT(*mqttBroker)
		if err != nil {
			log.Fatal(err)
		}
		rcvr.view.AddSink(sink.NewMQTT(rcvr.mqtt, *mqttTopic))
	}

	rcvr.area = NewLogArea()
	rcvr.ctrl = controller.New(view.NewTermination(rcvr.view), rcvr.area)
	rcvr.ctrl.OnStructureChanged(rcvr.logStack)
	rcvr.ctrl.SetInputBps(rcvr.d.Bps())

	if *stackFilename != "" {
		f, err := stackfile.Load(*stackFilename)
		if err != nil {
			log.Fatal(err)
		}
		if err := f.Apply(rcvr.ctrl); err != nil {
			log.Fatal(err)
		}

		// The demodulator decides the input width, not the file.
		if f.Bps != 0 && f.Bps != rcvr.d.Bps() {
			log.WithFields(log.Fields{
				"file":        f.Bps,
				"demodulator": rcvr.d.Bps(),
			}).Warn("stack file bits per symbol differs from demodulator")
			rcvr.ctrl.SetInputBps(rcvr.d.Bps())
		}
	}

	if *bypass {
		rcvr.ctrl.SetEnabled(false)
	}

	rcvr.d.Log()

	if *sampleFilename != "" {
		rcvr.src, err = os.Open(*sampleFilename)
		if err != nil {
			log.Fatal("Error opening sample file: ", err)
		}
		return
	}

	// Connect to rtl_tcp server.
	if err := rcvr.Connect(nil); err != nil {
		log.Fatal(err)
	}
	rcvr.src = rcvr.SDR

	if err := rcvr.HandleFlags(); err != nil {
		log.Fatal(err)
	}

	centerFreq := uint32(DefaultCenterFreq)
	sampleRate := uint32(DefaultSampleRate)

	gainFlagSet := false
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "centerfreq":
			centerFreq = uint32(rcvr.Flags.CenterFreq)
		case "samplerate":
			sampleRate = uint32(rcvr.Flags.SampleRate)
		case "gainbyindex", "tunergainmode", "tunergain", "agcmode":
			gainFlagSet = true
		}
	})

	rcvr.SetCenterFreq(centerFreq)
	rcvr.SetSampleRate(sampleRate)

	if !gainFlagSet {
		rcvr.SetGainMode(true)
	}

	log.WithFields(log.Fields{
		"centerfreq": centerFreq,
		"samplerate": sampleRate,
		"gaincount":  rcvr.SDR.Info.GainCount,
	}).Info("connected to rtl_tcp")
}

func (rcvr *Receiver) logStack() {
	var names []string
	for _, e := range rcvr.ctrl.Entries() {
		names = append(names, e.Name)
	}

	logger := log.WithFields(log.Fields{
		"decoders": names,
		"enabled":  rcvr.ctrl.Enabled(),
		"ready":    rcvr.ctrl.Ready(),
		"in":       rcvr.ctrl.InputBps(),
		"out":      rcvr.ctrl.OutputBps(),
	})

	if rcvr.ctrl.Enabled() && !rcvr.ctrl.Ready() {
		logger.Warn("decoder stack disconnected")
		return
	}
	logger.Info("decoder stack rebuilt")
}

func (rcvr *Receiver) Close() {
	rcvr.stop <- struct{}{}

	if rcvr.ctrl != nil {
		rcvr.ctrl.Close()
	}
	if rcvr.mqtt != nil {
		rcvr.mqtt.Disconnect(250)
	}
	if rcvr.src != nil {
		rcvr.src.Close()
	}
}

func (rcvr *Receiver) Run() {
	// Setup signal channel for interruption.
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Kill, os.Interrupt)

	// Setup time limit channel
	tLimit := make(<-chan time.Time, 1)
	if *timeLimit != 0 {
		tLimit = time.After(*timeLimit)
	}

	status := make(<-chan time.Time)
	if *statusInterval > 0 {
		ticker := time.NewTicker(*statusInterval)
		defer ticker.Stop()
		status = ticker.C
	}

	start := time.Now()

	// Allocate a channel of blocks.
	blockCh := make(chan []byte)

	// Read and send sample blocks to the decider.
	go func() {
		// Make two sample blocks, one for reading, and one for the receiver to
		// decide, these are exchanged each time we read a new block.
		blockA := make([]byte, rcvr.d.BlockBytes())
		blockB := make([]byte, rcvr.d.BlockBytes())

		// When exiting this goroutine, close the block channel.
		defer close(blockCh)

		for {
			select {
			// Exit if we've been told to stop.
			case <-rcvr.stop:
				return
			default:
				// Read new sample block.
				_, err := io.ReadFull(rcvr.src, blockA)

				// If we get an EOF, exit.
				if err == io.EOF || err == io.ErrUnexpectedEOF {
					log.Info("encountered eof: ", err)
					return
				}

				// If we get a network operation error.
				if opErr, ok := err.(*net.OpError); ok {
					// If temporary, keep reading.
					if opErr.Temporary() {
						log.Warnf("operr: temporary: %+v", opErr)
						continue
					}

					// If it's not temporary, exit.
					log.Errorf("operr: %+v", opErr)
					return
				}

				if err != nil {
					log.Error("Error reading samples: ", err)
					return
				}

				// Send the sample block.
				blockCh <- blockA

				// Exchange blocks for next read.
				blockA, blockB = blockB, blockA
			}
		}
	}()

	for {
		// Exit on interrupt or time limit, otherwise receive.
		select {
		case <-sigint:
			return
		case <-tLimit:
			log.Info("Time Limit Reached: ", time.Since(start))
			return
		case <-status:
			rcvr.area.Render()
		case block, ok := <-blockCh:
			// If blockCh is closed, exit.
			if !ok {
				return
			}

			// Process failures are logged and counted by the stack, the
			// stack keeps running.
			if err := rcvr.ctrl.Feed(rcvr.d.Decide(block)); err != nil {
				log.Debug(err)
			}
		}
	}
}

func init() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)
}

var (
	buildTag   = "dev"     // v#.#.#
	buildDate  = "unknown" // date -u '+%Y-%m-%d'
	commitHash = "unknown" // git rev-parse HEAD
)

func listDecoders(w io.Writer) {
	for _, f := range decoder.Catalog() {
		fmt.Fprintf(w, "  %-12s %s\n", f.Name, f.Description)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.WithField("addr", addr).Info("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server: ", err)
	}
}

func main() {
	rcvr.RegisterFlags()
	RegisterFlags()
	EnvOverride()
	flag.Parse()

	if *version {
		fmt.Println("Build Tag: ", buildTag)
		fmt.Println("Build Date:", buildDate)
		fmt.Println("Commit:    ", commitHash)
		os.Exit(0)
	}

	if *list {
		listDecoders(os.Stdout)
		os.Exit(0)
	}

	HandleFlags()

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr)
	}

	rcvr.NewReceiver()

	rcvr.Run()

	if *saveStackFilename != "" {
		if err := stackfile.Snapshot(rcvr.ctrl).Save(*saveStackFilename); err != nil {
			log.Error(err)
		} else {
			log.WithField("file", *saveStackFilename).Info("saved decoder stack")
		}
	}

	rcvr.Close()
}
