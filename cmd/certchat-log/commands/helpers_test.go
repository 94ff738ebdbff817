package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/certchat/certchat-go/pkg/log"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test"+log.FileExtension)

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

// sessionEvents is a short passive-side capture: certificate exchange,
// verdicts, one line each way, then the peer going away.
func sessionEvents() []log.Event {
	ts := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	at := func(ms int) time.Time { return ts.Add(time.Duration(ms) * time.Millisecond) }
	base := func(ms int, dir log.Direction, layer log.Layer, cat log.Category) log.Event {
		return log.Event{
			Timestamp:    at(ms),
			ConnectionID: "0f3c9a1e-7d2b-4c55-9e61-2a8f3b7c1d40",
			Direction:    dir,
			Layer:        layer,
			Category:     cat,
			LocalRole:    log.RolePassive,
			RemoteAddr:   "192.0.2.10:53122",
		}
	}

	certOut := base(0, log.DirectionOut, log.LayerTransport, log.CategoryMessage)
	certOut.Frame = &log.FrameEvent{Kind: log.FrameKindCertificate, Size: 4 + 3, Data: []byte{0x30, 0x82, 0x01}}

	certIn := base(5, log.DirectionIn, log.LayerTransport, log.CategoryMessage)
	certIn.Frame = &log.FrameEvent{Kind: log.FrameKindCertificate, Size: 4 + 3, Data: []byte{0x30, 0x82, 0x02}}

	accepted := base(8, log.DirectionOut, log.LayerHandshake, log.CategoryState)
	accepted.PeerSubject = "bob"
	accepted.StateChange = &log.StateChangeEvent{Entity: log.StateEntityHandshake, OldState: "VALIDATING", NewState: "AUTHENTICATED"}

	verdict := base(9, log.DirectionOut, log.LayerTransport, log.CategoryMessage)
	verdict.PeerSubject = "bob"
	verdict.Frame = &log.FrameEvent{Kind: log.FrameKindText, Size: 2 + 20, Data: []byte("Certificate Accepted")}

	hello := base(1000, log.DirectionIn, log.LayerTransport, log.CategoryMessage)
	hello.PeerSubject = "bob"
	hello.Frame = &log.FrameEvent{Kind: log.FrameKindText, Size: 2 + 5, Data: []byte("hello")}

	reply := base(2000, log.DirectionOut, log.LayerTransport, log.CategoryMessage)
	reply.PeerSubject = "bob"
	reply.Frame = &log.FrameEvent{Kind: log.FrameKindText, Size: 2 + 3, Data: []byte("hey")}

	failure := base(3000, log.DirectionOut, log.LayerSession, log.CategoryError)
	failure.PeerSubject = "bob"
	failure.Error = &log.ErrorEventData{Layer: log.LayerSession, Message: "broken pipe", Context: "outbound"}

	return []log.Event{certOut, certIn, accepted, verdict, hello, reply, failure}
}
