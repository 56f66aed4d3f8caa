package controller

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/bemasher/rtlsym/decoder"
	"github.com/bemasher/rtlsym/stack"
	"github.com/bemasher/rtlsym/view"
)

// fixed requires an exact input width and truncates symbols to its output
// width.
type fixed struct {
	cfg     decoder.Config
	in, out uint8
	label   string
}

func (f *fixed) Name() string { return f.label }

func (f *fixed) Configure(cfg decoder.Config) error {
	if err := cfg.Only("in", "out", "label", "ui"); err != nil {
		return err
	}
	in, err := cfg.IntRange("in", 1, 1, decoder.MaxBps)
	if err != nil {
		return err
	}
	out, err := cfg.IntRange("out", 1, 1, decoder.MaxBps)
	if err != nil {
		return err
	}

	f.cfg = cfg.Copy()
	f.in, f.out = uint8(in), uint8(out)
	if label, ok := cfg["label"].(string); ok {
		f.label = label
	}
	return nil
}

func (f *fixed) Config() decoder.Config { return f.cfg.Copy() }
func (f *fixed) OutputBps() uint8       { return f.out }
func (f *fixed) State() string          { return fmt.Sprintf("%d->%d", f.in, f.out) }

func (f *fixed) SetInputBps(bps uint8) error {
	if bps != f.in {
		return decoder.RejectBps(f.label, bps, "width mismatch")
	}
	return nil
}

func (f *fixed) Work(_ decoder.FrameID, in []decoder.Symbol) ([]decoder.Symbol, error) {
	out := make([]decoder.Symbol, len(in))
	for idx, sym := range in {
		out[idx] = sym & decoder.Mask(f.out)
	}
	return out, nil
}

// echo passes symbols through and replays each buffer again on Flush.
type echo struct {
	fixed
	held []decoder.Symbol
}

func (e *echo) Work(frame decoder.FrameID, in []decoder.Symbol) ([]decoder.Symbol, error) {
	e.held = append(e.held, in...)
	return e.fixed.Work(frame, in)
}

func (e *echo) Flush() []decoder.Symbol {
	held := e.held
	e.held = nil
	return held
}

// once fails on the first buffer it sees.
type once struct {
	fixed
	failed bool
}

func (o *once) Work(frame decoder.FrameID, in []decoder.Symbol) ([]decoder.Symbol, error) {
	if !o.failed {
		o.failed = true
		return nil, errors.New("first buffer rejected")
	}
	return o.fixed.Work(frame, in)
}

func init() {
	decoder.Register("test-echo", "replays buffers on flush", func() decoder.Objects {
		return decoder.Objects{Decoder: &echo{fixed: fixed{in: 1, out: 1, label: "echo"}}}
	})
	decoder.Register("test-once", "fails on its first buffer", func() decoder.Objects {
		return decoder.Objects{Decoder: &once{fixed: fixed{in: 1, out: 1, label: "once"}}}
	})
	decoder.Register("test-fixed", "fixed width test stage", func() decoder.Objects {
		f := &fixed{in: 1, out: 1, label: "fixed"}
		return decoder.Objects{Decoder: f}
	})
	decoder.Register("test-fixed-ui", "fixed width test stage with a surface", func() decoder.Objects {
		f := &fixed{in: 1, out: 1, label: "fixed"}
		return decoder.Objects{Decoder: f, UI: decoder.StatusSurface{Label: "fixed", Decoder: f}}
	})
}

type area struct {
	open      map[uuid.UUID]decoder.Surface
	closed    []uuid.UUID
	activated []uuid.UUID
}

func newArea() *area {
	return &area{open: make(map[uuid.UUID]decoder.Surface)}
}

func (a *area) Open(id uuid.UUID, s decoder.Surface) { a.open[id] = s }
func (a *area) Activate(id uuid.UUID)                { a.activated = append(a.activated, id) }

func (a *area) Close(id uuid.UUID) {
	delete(a.open, id)
	a.closed = append(a.closed, id)
}

type harness struct {
	*Controller
	view    *view.SymbolView
	area    *area
	changes int
	toggles int
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{view: view.NewSymbolView(0), area: newArea()}
	h.Controller = New(view.NewTermination(h.view), h.area)
	h.OnStructureChanged(func() { h.changes++ })
	h.OnEnabledChanged(func() { h.toggles++ })

	return h
}

func (h *harness) add(t *testing.T, label string, in, out int) int {
	t.Helper()

	idx, err := h.Add("test-fixed", decoder.Config{"label": label, "in": in, "out": out})
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func (h *harness) assertFailed(t *testing.T, want ...bool) {
	t.Helper()

	entries := h.Entries()
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for idx, e := range entries {
		if e.Failed != want[idx] {
			t.Fatalf("entry %d (%s): expected failed=%v", idx, e.Decoder.Name(), want[idx])
		}
	}
}

func (h *harness) names() (names []string) {
	for _, e := range h.Entries() {
		names = append(names, e.Decoder.Name())
	}
	return
}

func TestScenario(t *testing.T) {
	h := newHarness(t)

	h.add(t, "A", 1, 1)
	h.add(t, "B", 1, 2)
	h.add(t, "C", 2, 1)

	if !h.Ready() {
		t.Fatal("expected [A B C] to connect")
	}
	h.assertFailed(t, false, false, false)
	if h.OutputBps() != 1 {
		t.Fatalf("expected 1 bps out, got %d", h.OutputBps())
	}

	if err := h.Move(1, 0); err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprint(h.names()); got != "[B A C]" {
		t.Fatalf("unexpected order %s", got)
	}
	if h.Ready() {
		t.Fatal("expected [B A C] to fail")
	}
	h.assertFailed(t, false, true, true)

	// Removing the failed stage leaves a compatible chain.
	if err := h.Remove(1); err != nil {
		t.Fatal(err)
	}
	if !h.Ready() {
		t.Fatal("expected [B C] to connect")
	}
	h.assertFailed(t, false, false)
}

func TestSingleIncompatibleStage(t *testing.T) {
	h := newHarness(t)

	h.add(t, "A", 1, 1)
	h.add(t, "B", 1, 1)
	h.add(t, "X", 2, 2)
	h.add(t, "D", 2, 1)

	if h.Ready() {
		t.Fatal("expected chain to fail at X")
	}
	h.assertFailed(t, false, false, true, true)
	if h.OutputBps() != 0 {
		t.Fatalf("expected no output width, got %d", h.OutputBps())
	}
}

func TestFeedNotReadyIsSilent(t *testing.T) {
	h := newHarness(t)
	h.add(t, "X", 2, 2)

	if err := h.Feed([]decoder.Symbol{1, 0, 1}); err != nil {
		t.Fatal(err)
	}
	if h.view.Total() != 0 {
		t.Fatalf("symbols reached the view: %v", h.view.Symbols())
	}
}

func TestFeedConnected(t *testing.T) {
	h := newHarness(t)
	h.SetInputBps(2)
	h.add(t, "C", 2, 1)

	if err := h.Feed([]decoder.Symbol{3, 2, 1}); err != nil {
		t.Fatal(err)
	}
	if got := view.FormatSymbols(h.view.Symbols(), h.view.BitsPerSymbol()); got != "101" {
		t.Fatalf("expected 101, got %s", got)
	}
}

func TestFeedFlushesAfterFailure(t *testing.T) {
	h := newHarness(t)
	for _, name := range []string{"test-echo", "test-once"} {
		if _, err := h.Add(name, nil); err != nil {
			t.Fatal(err)
		}
	}
	if !h.Ready() {
		t.Fatal("expected [echo once] to connect")
	}

	err := h.Feed([]decoder.Symbol{1, 0})
	if !stack.IsProcessError(err) {
		t.Fatalf("expected process error, got %v", err)
	}
	if got := view.FormatSymbols(h.view.Symbols(), 1); got != "10" {
		t.Fatalf("expected flushed symbols 10 at the view, got %q", got)
	}

	if err := h.Feed([]decoder.Symbol{1}); err != nil {
		t.Fatal(err)
	}
	if h.view.Total() != 4 {
		t.Fatalf("expected 4 symbols at the view, got %d", h.view.Total())
	}
}

type frameSink struct {
	ids []decoder.FrameID
}

func (s *frameSink) Write(f view.Frame) error {
	s.ids = append(s.ids, f.ID)
	return nil
}

func TestBypassFrameIDs(t *testing.T) {
	h := newHarness(t)
	rec := &frameSink{}
	h.view.AddSink(rec)

	h.add(t, "A", 1, 1)
	h.Feed([]decoder.Symbol{1})
	h.Toggle()
	h.Feed([]decoder.Symbol{0})
	h.Feed([]decoder.Symbol{1})

	if fmt.Sprint(rec.ids) != "[1 2 3]" {
		t.Fatalf("expected frames [1 2 3], got %v", rec.ids)
	}
}

func TestToggle(t *testing.T) {
	h := newHarness(t)
	h.SetInputBps(2)
	h.add(t, "C", 2, 1)
	h.add(t, "B", 1, 2)
	h.add(t, "C2", 2, 1)

	before := fmt.Sprint(h.names())
	changes := h.changes

	h.Toggle()
	if h.Enabled() {
		t.Fatal("expected chain disabled")
	}
	if h.toggles != 1 || h.changes != changes+1 {
		t.Fatalf("expected one toggle and one change, got %d and %d", h.toggles, h.changes-changes)
	}
	if h.OutputBps() != 2 || h.view.BitsPerSymbol() != 2 {
		t.Fatalf("bypass should render at 2 bps, got %d/%d", h.OutputBps(), h.view.BitsPerSymbol())
	}

	if err := h.Feed([]decoder.Symbol{3, 2}); err != nil {
		t.Fatal(err)
	}
	if got := view.FormatSymbols(h.view.Symbols(), h.view.BitsPerSymbol()); got != "11 10" {
		t.Fatalf("bypassed symbols were altered: %s", got)
	}

	h.Toggle()
	if !h.Enabled() || !h.Ready() {
		t.Fatal("expected chain enabled and ready")
	}
	if h.OutputBps() != 1 || h.view.BitsPerSymbol() != 1 {
		t.Fatalf("expected chain width 1, got %d/%d", h.OutputBps(), h.view.BitsPerSymbol())
	}
	if after := fmt.Sprint(h.names()); after != before {
		t.Fatalf("toggle changed order: %s -> %s", before, after)
	}
	if cfg := h.Entries()[1].Decoder.Config(); cfg["in"] != 1 || cfg["out"] != 2 {
		t.Fatalf("toggle changed configuration: %v", cfg)
	}
}

func TestStructureChangedOnEveryEdit(t *testing.T) {
	h := newHarness(t)
	start := h.changes

	h.add(t, "X", 2, 2)
	h.add(t, "A", 1, 1)
	h.Move(0, 1)
	h.Remove(0)
	h.SetInputBps(1)

	if h.changes-start != 5 {
		t.Fatalf("expected 5 notifications, got %d", h.changes-start)
	}
}

func TestSurfaces(t *testing.T) {
	h := newHarness(t)

	idx, err := h.Add("test-fixed-ui", nil)
	if err != nil {
		t.Fatal(err)
	}
	e, _ := h.Entry(idx)
	if e.Surface == uuid.Nil {
		t.Fatal("entry with UI has no surface id")
	}
	if _, ok := h.area.open[e.Surface]; !ok {
		t.Fatal("surface not opened")
	}

	h.Select(idx)
	if n := len(h.area.activated); n != 2 || h.area.activated[n-1] != e.Surface {
		t.Fatalf("expected surface activated on add and select, got %v", h.area.activated)
	}

	if err := h.Remove(idx); err != nil {
		t.Fatal(err)
	}
	if len(h.area.closed) != 1 || h.area.closed[0] != e.Surface {
		t.Fatalf("expected surface to be closed, got %v", h.area.closed)
	}
	if err := h.SurfaceClosed(e.Surface); !errors.Is(err, ErrSurface) {
		t.Fatalf("removed surface still indexed: %v", err)
	}
}

func TestSurfaceClosedOutOfBand(t *testing.T) {
	h := newHarness(t)

	h.add(t, "A", 1, 1)
	idx, err := h.Add("test-fixed-ui", nil)
	if err != nil {
		t.Fatal(err)
	}
	h.add(t, "B", 1, 1)

	e, _ := h.Entry(idx)
	changes := h.changes

	if err := h.SurfaceClosed(e.Surface); err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprint(h.names()); got != "[A B]" {
		t.Fatalf("unexpected entries after closing surface: %s", got)
	}
	if len(h.area.closed) != 0 {
		t.Fatalf("surface closed by the user was closed again: %v", h.area.closed)
	}
	if h.changes != changes+1 || !h.Ready() {
		t.Fatal("expected a rebuild after surface closure")
	}

	if err := h.SurfaceClosed(uuid.New()); !errors.Is(err, ErrSurface) {
		t.Fatalf("expected ErrSurface, got %v", err)
	}
}

func TestAddErrors(t *testing.T) {
	h := newHarness(t)

	if _, err := h.Add("no-such-decoder", nil); !errors.Is(err, decoder.ErrUnknown) {
		t.Fatalf("expected ErrUnknown, got %v", err)
	}
	if _, err := h.Add("test-fixed", decoder.Config{"in": 12}); !errors.Is(err, decoder.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	if h.Len() != 0 {
		t.Fatalf("failed adds left %d entries", h.Len())
	}
}

func TestIndexErrors(t *testing.T) {
	h := newHarness(t)
	h.add(t, "A", 1, 1)

	for _, err := range []error{h.Remove(1), h.Remove(-1), h.Move(0, 3), h.Select(5)} {
		if !errors.Is(err, ErrIndex) {
			t.Fatalf("expected ErrIndex, got %v", err)
		}
	}
	if _, err := h.Entry(2); !errors.Is(err, ErrIndex) {
		t.Fatalf("expected ErrIndex, got %v", err)
	}
}

func TestClose(t *testing.T) {
	h := newHarness(t)
	h.Add("test-fixed-ui", nil)
	h.Add("test-fixed-ui", nil)
	h.add(t, "A", 1, 1)

	h.Close()
	if h.Len() != 0 || len(h.area.open) != 0 || len(h.area.closed) != 2 {
		t.Fatalf("teardown left %d entries and %d open surfaces", h.Len(), len(h.area.open))
	}
}
