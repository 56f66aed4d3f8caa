package diff

import (
	"errors"
	"testing"

	"github.com/bemasher/rtlsym/decoder"
)

func TestWork(t *testing.T) {
	testCases := []struct {
		name string
		bps  uint8
		sign bool
		in   []decoder.Symbol
		want []decoder.Symbol
	}{
		{"binary", 1, false, []decoder.Symbol{1, 1, 0, 1, 0, 0}, []decoder.Symbol{1, 0, 1, 1, 1, 0}},
		{"quaternary", 2, false, []decoder.Symbol{1, 3, 0, 2}, []decoder.Symbol{1, 2, 1, 2}},
		{"sign", 2, true, []decoder.Symbol{1, 3, 0, 2}, []decoder.Symbol{3, 2, 3, 2}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			obj, err := decoder.New("diff", decoder.Config{"sign": tc.sign})
			if err != nil {
				t.Fatal(err)
			}
			d := obj.Decoder
			if err := d.SetInputBps(tc.bps); err != nil {
				t.Fatal(err)
			}

			got, err := d.Work(0, tc.in)
			if err != nil {
				t.Fatal(err)
			}
			for idx := range tc.want {
				if got[idx] != tc.want[idx] {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
			}
		})
	}
}

func TestStateCarriesAcrossBuffers(t *testing.T) {
	d := New()

	a, _ := d.Work(0, []decoder.Symbol{1, 1})
	b, _ := d.Work(1, []decoder.Symbol{0})
	if a[1] != 0 || b[0] != 1 {
		t.Fatalf("expected previous symbol to carry over, got %v %v", a, b)
	}
}

func TestRejects(t *testing.T) {
	d := New()
	if err := d.SetInputBps(9); !errors.Is(err, decoder.ErrBps) {
		t.Fatalf("expected ErrBps, got %v", err)
	}
	if _, err := d.Work(0, []decoder.Symbol{2}); !errors.Is(err, decoder.ErrSymbol) {
		t.Fatalf("expected ErrSymbol, got %v", err)
	}
	if err := d.Configure(decoder.Config{"bits": 2}); !errors.Is(err, decoder.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
