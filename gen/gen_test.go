package gen

import (
	"bytes"
	"testing"

	"github.com/bemasher/rtlsym/crc"
	"github.com/bemasher/rtlsym/decoder"
)

func TestNewRandFrame(t *testing.T) {
	for _, name := range []string{"bch", "ccitt"} {
		c := crc.Presets[name]
		for i := 0; i < 512; i++ {
			frame, err := NewRandFrame(12, c)
			if err != nil {
				t.Fatal(err)
			}

			if !c.Valid(frame) {
				t.Fatalf("%s: failed checksum: %04X\n", name, c.Checksum(frame))
			}
		}
	}
}

func TestManchesterLUT(t *testing.T) {
	lut := NewManchesterLUT()

	recv := lut.Encode([]byte{0x00})
	expt := []byte{0x55, 0x55}
	if !bytes.Equal(recv, expt) {
		t.Fatalf("Expected %02X got %02X\n", expt, recv)
	}

	recv = lut.Encode([]byte{0xF9, 0x53})
	expt = []byte{0xAA, 0x96, 0x66, 0x5A}
	if !bytes.Equal(recv, expt) {
		t.Fatalf("Expected %02X got %02X\n", expt, recv)
	}
}

func TestUnpackBits(t *testing.T) {
	bits := UnpackBits([]byte{0xF9, 0x53})
	want := []decoder.Symbol{1, 1, 1, 1, 1, 0, 0, 1, 0, 1, 0, 1, 0, 0, 1, 1}

	for idx := range want {
		if bits[idx] != want[idx] {
			t.Fatalf("Expected %d got %d\n", want, bits)
		}
	}
}

func TestLevelBytes(t *testing.T) {
	if got := LevelBytes(2); !bytes.Equal(got, []byte{128, 54, 23, 0}) {
		t.Fatalf("unexpected levels: %d", got)
	}
	if got := LevelBytes(1); !bytes.Equal(got, []byte{128, 0}) {
		t.Fatalf("unexpected levels: %d", got)
	}
}

func TestModulate(t *testing.T) {
	signal := Modulate([]decoder.Symbol{0, 1}, 1, 3)
	want := []byte{128, 127, 128, 127, 128, 127, 0, 127, 0, 127, 0, 127}

	if !bytes.Equal(signal, want) {
		t.Fatalf("Expected %d got %d\n", want, signal)
	}
}
