package sink

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/bemasher/rtlsym/decoder"
	"github.com/bemasher/rtlsym/view"
)

var testFrame = view.Frame{
	Time:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	ID:      42,
	Bps:     2,
	Symbols: []decoder.Symbol{3, 0, 1},
}

func TestNewFormat(t *testing.T) {
	for _, format := range []string{"plain", "CSV", "json"} {
		if _, err := New(format, &bytes.Buffer{}); err != nil {
			t.Fatalf("%s: %v", format, err)
		}
	}
	if _, err := New("gob", &bytes.Buffer{}); err == nil {
		t.Fatal("expected unknown format to fail")
	}
}

func TestPlain(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (Plain{buf}).Write(testFrame); err != nil {
		t.Fatal(err)
	}

	want := "{Time:2026-01-02T03:04:05.000 Frame:42 Bps:2 Symbols:11 00 01}\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

func TestCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewCSV(buf).Write(testFrame); err != nil {
		t.Fatal(err)
	}

	want := "2026-01-02T03:04:05Z,42,2,11 00 01\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

func TestJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewJSON(buf).Write(testFrame); err != nil {
		t.Fatal(err)
	}

	var got JSONFrame
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Frame != 42 || got.Bps != 2 || got.Bits != "11 00 01" || len(got.Symbols) != 3 {
		t.Fatalf("unexpected frame: %+v", got)
	}
}

type token struct {
	done chan struct{}
	err  error
}

func (t *token) Wait() bool                     { <-t.done; return true }
func (t *token) WaitTimeout(time.Duration) bool { return true }
func (t *token) Done() <-chan struct{}          { return t.done }
func (t *token) Error() error                   { return t.err }

type publisher struct {
	topics   []string
	payloads [][]byte
	tok      *token
}

func (p *publisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload.([]byte))
	return p.tok
}

func TestMQTTDoesNotWait(t *testing.T) {
	pub := &publisher{tok: &token{done: make(chan struct{})}}
	m := NewMQTT(pub, "")

	if err := m.Write(testFrame); err != nil {
		t.Fatal(err)
	}
	if len(pub.topics) != 1 || pub.topics[0] != DefaultTopic {
		t.Fatalf("unexpected topics: %v", pub.topics)
	}
	if !strings.Contains(string(pub.payloads[0]), `"bits":"11 00 01"`) {
		t.Fatalf("unexpected payload: %s", pub.payloads[0])
	}
}

func TestMQTTReportsCompletedFailure(t *testing.T) {
	done := make(chan struct{})
	close(done)
	refused := errors.New("not authorized")

	m := NewMQTT(&publisher{tok: &token{done: done, err: refused}}, "frames")
	if err := m.Write(testFrame); !errors.Is(err, refused) {
		t.Fatalf("expected publish error, got %v", err)
	}
}
