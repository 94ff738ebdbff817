package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/certchat/certchat-go/pkg/log"
)

// exportRecord is the flattened form of an event shared by every export format.
type exportRecord struct {
	Timestamp    string `json:"timestamp"`
	ConnectionID string `json:"connection_id"`
	Direction    string `json:"direction"`
	Layer        string `json:"layer"`
	Category     string `json:"category"`
	Role         string `json:"role"`
	RemoteAddr   string `json:"remote_addr,omitempty"`
	Peer         string `json:"peer,omitempty"`
	Type         string `json:"type"`

	FrameKind string `json:"frame_kind,omitempty"`
	Size      int    `json:"size,omitempty"`
	Text      string `json:"text,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`

	Entity   string `json:"entity,omitempty"`
	OldState string `json:"old_state,omitempty"`
	NewState string `json:"new_state,omitempty"`
	Reason   string `json:"reason,omitempty"`

	Error   string `json:"error,omitempty"`
	Context string `json:"context,omitempty"`
}

var csvHeader = []string{"timestamp", "connection_id", "direction", "layer", "category", "role", "remote_addr", "peer", "type", "size"}

func (r *exportRecord) csvRow() []string {
	size := ""
	if r.FrameKind != "" {
		size = strconv.Itoa(r.Size)
	}
	return []string{r.Timestamp, r.ConnectionID, r.Direction, r.Layer, r.Category, r.Role, r.RemoteAddr, r.Peer, r.Type, size}
}

func newExportRecord(event log.Event) exportRecord {
	rec := exportRecord{
		Timestamp:    event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		ConnectionID: event.ConnectionID,
		Direction:    event.Direction.String(),
		Layer:        event.Layer.String(),
		Category:     event.Category.String(),
		Role:         event.LocalRole.String(),
		RemoteAddr:   event.RemoteAddr,
		Peer:         event.PeerSubject,
		Type:         eventType(event),
	}

	if f := event.Frame; f != nil {
		rec.FrameKind = f.Kind.String()
		rec.Size = f.Size
		rec.Truncated = f.Truncated
		if f.Kind == log.FrameKindText && utf8.Valid(f.Data) {
			rec.Text = string(f.Data)
		}
	}
	if sc := event.StateChange; sc != nil {
		rec.Entity = sc.Entity.String()
		rec.OldState = sc.OldState
		rec.NewState = sc.NewState
		rec.Reason = sc.Reason
	}
	if e := event.Error; e != nil {
		rec.Error = e.Message
		rec.Context = e.Context
	}
	return rec
}

// recordWriter receives one flattened event at a time.
type recordWriter interface {
	write(rec *exportRecord) error
	flush() error
}

type jsonlWriter struct{ enc *json.Encoder }

func (j jsonlWriter) write(rec *exportRecord) error { return j.enc.Encode(rec) }
func (j jsonlWriter) flush() error                  { return nil }

type csvWriter struct{ w *csv.Writer }

func (c csvWriter) write(rec *exportRecord) error { return c.w.Write(rec.csvRow()) }

func (c csvWriter) flush() error {
	c.w.Flush()
	return c.w.Error()
}

func newRecordWriter(format string, w io.Writer) (recordWriter, error) {
	switch format {
	case "jsonl":
		return jsonlWriter{enc: json.NewEncoder(w)}, nil
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		return csvWriter{w: cw}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

// RunExport writes every event of the log at path in the given format
// ("jsonl" or "csv") to output, or to stdout when output is empty.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var out io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	rw, err := newRecordWriter(format, out)
	if err != nil {
		return err
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		rec := newExportRecord(event)
		if err := rw.write(&rec); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
	return rw.flush()
}
