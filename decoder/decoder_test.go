package decoder

import (
	"errors"
	"testing"
)

type nop struct {
	cfg Config
}

func (n *nop) Name() string { return "nop" }

func (n *nop) Configure(cfg Config) error {
	if err := cfg.Only("level"); err != nil {
		return err
	}
	if _, err := cfg.IntRange("level", 0, 0, 3); err != nil {
		return err
	}
	n.cfg = cfg.Copy()
	return nil
}

func (n *nop) Config() Config                                { return n.cfg.Copy() }
func (n *nop) SetInputBps(bps uint8) error                   { return nil }
func (n *nop) OutputBps() uint8                              { return 1 }
func (n *nop) Work(_ FrameID, in []Symbol) ([]Symbol, error) { return in, nil }
func (n *nop) State() string                                 { return "idle" }

func init() {
	Register("test-nop", "does nothing", func() Objects {
		d := &nop{}
		return Objects{Decoder: d, UI: StatusSurface{"nop", d}}
	})
}

func TestConfigInt(t *testing.T) {
	testCases := []struct {
		name string
		cfg  Config
		want int
		fail bool
	}{
		{"absent", Config{}, 7, false},
		{"yaml int", Config{"n": 3}, 3, false},
		{"json float", Config{"n": 4.0}, 4, false},
		{"fractional", Config{"n": 4.5}, 7, true},
		{"string", Config{"n": "4"}, 7, true},
	}

	for _, tc := range testCases {
		got, err := tc.cfg.Int("n", 7)
		if (err != nil) != tc.fail {
			t.Fatalf("%s: unexpected error state: %v", tc.name, err)
		}
		if err != nil && !errors.Is(err, ErrConfig) {
			t.Fatalf("%s: expected ErrConfig, got %v", tc.name, err)
		}
		if !tc.fail && got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestConfigInts(t *testing.T) {
	cfg := Config{"taps": []interface{}{12, 17.0}}
	taps, err := cfg.Ints("taps", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(taps) != 2 || taps[0] != 12 || taps[1] != 17 {
		t.Fatalf("unexpected taps: %v", taps)
	}

	if _, err := (Config{"taps": 5}).Ints("taps", nil); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestConfigText(t *testing.T) {
	cfg := Config{"preset": "bch", "n": 1}
	if v, err := cfg.Text("preset", "ccitt"); err != nil || v != "bch" {
		t.Fatalf("expected bch, got %q (%v)", v, err)
	}
	if v, _ := cfg.Text("missing", "ccitt"); v != "ccitt" {
		t.Fatalf("expected default, got %q", v)
	}
	if _, err := cfg.Text("n", ""); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestConfigOnly(t *testing.T) {
	if err := (Config{"a": 1}).Only("a", "b"); err != nil {
		t.Fatal(err)
	}
	if err := (Config{"a": 1, "c": 2}).Only("a"); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestMask(t *testing.T) {
	for bps, want := range map[uint8]Symbol{1: 0x01, 2: 0x03, 7: 0x7F, 8: 0xFF} {
		if got := Mask(bps); got != want {
			t.Fatalf("bps %d: expected 0x%02X, got 0x%02X", bps, want, got)
		}
	}

	if err := CheckSymbols([]Symbol{0, 1, 3}, 2); err != nil {
		t.Fatal(err)
	}
	if err := CheckSymbols([]Symbol{0, 4}, 2); !errors.Is(err, ErrSymbol) {
		t.Fatalf("expected ErrSymbol, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	obj, err := New("test-nop", Config{"level": 2})
	if err != nil {
		t.Fatal(err)
	}
	if obj.UI == nil || obj.UI.Render() != "nop: idle" {
		t.Fatalf("unexpected surface: %+v", obj.UI)
	}
	if obj.Decoder.Config()["level"] != 2 {
		t.Fatalf("configuration not applied: %v", obj.Decoder.Config())
	}

	if _, err := New("test-nop", Config{"level": 9}); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}

	if _, err := Lookup("no-such-decoder"); !errors.Is(err, ErrUnknown) {
		t.Fatalf("expected ErrUnknown, got %v", err)
	}

	found := false
	for _, f := range Catalog() {
		if f.Name == "test-nop" && f.Description == "does nothing" {
			found = true
		}
	}
	if !found {
		t.Fatal("test-nop missing from catalog")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic registering duplicate")
		}
	}()
	Register("test-nop", "", func() Objects { return Objects{} })
}
