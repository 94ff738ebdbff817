package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/certchat/certchat-go/pkg/log"
)

func TestViewFormatsEvents(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"2026-03-02T09:30:00.000000Z [conn:0f3c9a1e] OUT TRANSPORT Frame",
		"Kind: CERT  Size: 7 bytes",
		"Data: 308201",
		"VALIDATING -> AUTHENTICATED",
		`Text: "Certificate Accepted"`,
		`Text: "hello"`,
		"Peer: bob",
		"Message: broken pipe",
		"Context: outbound",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\n%s", want, output)
		}
	}
}

func TestViewFilters(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())

	dir := log.DirectionIn
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Direction: &dir}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if n := strings.Count(buf.String(), "[conn:"); n != 2 {
		t.Errorf("inbound events = %d, want 2", n)
	}

	cat := log.CategoryError
	buf.Reset()
	if err := RunView(path, ViewFilter{Category: &cat}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if n := strings.Count(buf.String(), "[conn:"); n != 1 {
		t.Errorf("error events = %d, want 1", n)
	}

	buf.Reset()
	if err := RunView(path, ViewFilter{Peer: "mallory"}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestViewBinaryTextFrameShownAsHex(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	path := createTestLogFile(t, []log.Event{{
		Timestamp: ts,
		Frame:     &log.FrameEvent{Kind: log.FrameKindText, Size: 4, Data: []byte{0xff, 0xfe}, Truncated: true},
	}})

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Data: fffe (truncated)") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestViewMissingFile(t *testing.T) {
	if err := RunView("/nonexistent/x.clog", ViewFilter{}, &bytes.Buffer{}); err == nil {
		t.Error("expected error")
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLayerFlag("handshake"); err != nil || l != log.LayerHandshake {
		t.Errorf("ParseLayerFlag(handshake) = %v, %v", l, err)
	}
	if _, err := ParseLayerFlag("wire"); err == nil {
		t.Error("ParseLayerFlag(wire) should fail")
	}
	if d, err := ParseDirectionFlag("OUT"); err != nil || d != log.DirectionOut {
		t.Errorf("ParseDirectionFlag(OUT) = %v, %v", d, err)
	}
	if _, err := ParseDirectionFlag("sideways"); err == nil {
		t.Error("ParseDirectionFlag(sideways) should fail")
	}
	if c, err := ParseCategoryFlag("State"); err != nil || c != log.CategoryState {
		t.Errorf("ParseCategoryFlag(State) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("control"); err == nil {
		t.Error("ParseCategoryFlag(control) should fail")
	}
}
