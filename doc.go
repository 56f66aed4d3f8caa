/*
RTLSYM demodulates symbols from an rtl-sdr receiver and runs them through a
user defined stack of decoders. The final stage of every stack is the symbol
view, which writes each decoded buffer to stdout and any other configured sink.

Decoder stacks are validated whenever they change: every decoder must accept
the bits per symbol produced by the one before it. A stack that fails this
check is disconnected and symbols are dropped until it is fixed.

Command-line Flags:

	-bps=1

Sets the number of bits per demodulated symbol. Symbols are decided against
2^bps amplitude levels tracked from the received signal.

	-bypass=false

Starts with the decoder chain disabled. Demodulated symbols go straight to the
symbol view.

	-duration=0

Sets time to receive for, 0 for infinite. Exiting after an expired duration
will print the total runtime to the log.

	-format="plain"

Sets the symbol output format: plain, csv or json. Plain text is formatted
using the following format string:

	{Time:%s Frame:%d Bps:%d Symbols:%s}

	-list=false

Lists the decoders that can be used in a stack file and exits.

	-metrics=""

Serves prometheus metrics at /metrics on the given address.

	-mqtt=""
	-mqtttopic="rtlsym/symbols"

Publishes each decoded buffer as json to an mqtt broker.

	-samplefile=""

Reads interleaved unsigned 8-bit in-phase and quadrature samples from a file
instead of connecting to rtl_tcp.

	-stack=""
	-savestack=""

Loads a decoder stack from a yaml file and saves the stack on exit:

	bps: 1
	enabled: true
	decoders:
	  - name: manchester
	    config: {ieee: true}
	  - name: pack
	    config: {bits: 8}

	-symbollength=72

Sets the number of samples integrated per symbol.

	SymbolRate = SampleRate / SymbolLength

Every flag may also be given as an environment variable named RTLSYM_ followed
by the flag name in upper case, for example RTLSYM_FORMAT=json.
*/
package main
