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
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bemasher/rtlsym/sink"
	"github.com/bemasher/rtlsym/view"
)

var sampleFilename = flag.String("samplefile", "", "read raw IQ samples from file instead of rtl_tcp")

var symbolLength = flag.Int("symbollength", 72, "symbol length in samples")
var bps = flag.Uint("bps", 1, "bits per demodulated symbol, 1 to 8")
var decay = flag.Float64("decay", 0, "level tracker decay per symbol, 0 for default")

var stackFilename = flag.String("stack", "", "load the decoder stack from a yaml file")
var saveStackFilename = flag.String("savestack", "", "save the decoder stack to a yaml file on exit")
var bypass = flag.Bool("bypass", false, "start with the decoder chain disabled")
var list = flag.Bool("list", false, "list available decoders and exit")

var timeLimit = flag.Duration("duration", 0, "time to run for, 0 for infinite, ex. 1h5m10s")
var statusInterval = flag.Duration("status", 10*time.Second, "interval between decoder status reports, 0 to disable")

var format = flag.String("format", "plain", "symbol output format: plain, csv or json")
var history = flag.Int("history", view.DefaultHistory, "symbols kept by the symbol view")

var mqttBroker = flag.String("mqtt", "", "publish symbols to an mqtt broker, ex. tcp://localhost:1883")
var mqttTopic = flag.String("mqtttopic", sink.DefaultTopic, "mqtt topic to publish symbols on")

var metricsAddr = flag.String("metrics", "", "serve prometheus metrics on this address, ex. :9090")

var logLevel = flag.String("loglevel", "info", "log level: debug, info, warn or error")

var version = flag.Bool("version", false, "display build date and commit hash")

var output view.Sink

func RegisterFlags() {
	rtlsymFlags := map[string]bool{
		"samplefile":   true,
		"symbollength": true,
		"bps":          true,
		"decay":        true,
		"stack":        true,
		"savestack":    true,
		"bypass":       true,
		"list":         true,
		"duration":     true,
		"status":       true,
		"format":       true,
		"history":      true,
		"mqtt":         true,
		"mqtttopic":    true,
		"metrics":      true,
		"loglevel":     true,
		"version":      true,
	}

	printDefaults := func(validFlags map[string]bool, inclusion bool) {
		flag.CommandLine.VisitAll(func(f *flag.Flag) {
			if validFlags[f.Name] != inclusion {
				return
			}

			format := "  -%s=%s: %s\n"
			fmt.Fprintf(os.Stderr, format, f.Name, f.Value, f.Usage)
		})
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		printDefaults(rtlsymFlags, true)

		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "rtltcp specific:")
		printDefaults(rtlsymFlags, false)
	}
}

// EnvOverride sets flags from RTLSYM_<FLAG> environment variables.
func EnvOverride() {
	envOverride(flag.CommandLine, "RTLSYM_", os.Getenv)
}

func envOverride(fs *flag.FlagSet, prefix string, getenv func(string) string) {
	fs.VisitAll(func(f *flag.Flag) {
		envName := prefix + strings.ToUpper(f.Name)
		flagValue := getenv(envName)
		if flagValue == "" {
			return
		}

		logger := log.WithFields(log.Fields{"env": envName, "flag": f.Name, "value": flagValue})
		if err := fs.Set(f.Name, flagValue); err != nil {
			logger.Warn("environment variable failed to override flag: ", err)
		} else {
			logger.Info("environment variable overrides flag")
		}
	})
}

func HandleFlags() {
	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal("Error parsing log level: ", err)
	}
	log.SetLevel(level)

	if *bps < 1 || *bps > 8 {
		log.Fatalf("Invalid bits per symbol: %d", *bps)
	}

	output, err = sink.New(*format, os.Stdout)
	if err != nil {
		log.Fatal(err)
	}
}
