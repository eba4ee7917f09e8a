package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mash-protocol/twoparty-go/pkg/log"
	"github.com/mash-protocol/twoparty-go/pkg/wire"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.tplog")

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

func sampleEvents() []log.Event {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	latency := 1500 * time.Microsecond
	return []log.Event{
		{
			Timestamp:    ts,
			ConnectionID: "abc12345-6789",
			Layer:        log.LayerConnection,
			Category:     log.CategoryState,
			LocalSide:    wire.SideClient,
			StateChange:  &log.StateChangeEvent{Entity: log.StateEntityConnection, NewState: "OPEN"},
		},
		{
			Timestamp:    ts.Add(time.Millisecond),
			ConnectionID: "abc12345-6789",
			Direction:    log.DirectionOut,
			Layer:        log.LayerTransport,
			Category:     log.CategoryMessage,
			LocalSide:    wire.SideClient,
			Frame:        &log.FrameEvent{Size: 8, Data: []byte{0xa1, 0x61, 0x78, 0x01}},
		},
		{
			Timestamp:    ts.Add(2 * time.Millisecond),
			ConnectionID: "abc12345-6789",
			Direction:    log.DirectionOut,
			Layer:        log.LayerConnection,
			Category:     log.CategoryMessage,
			LocalSide:    wire.SideClient,
			Message:      &log.MessageEvent{Sequence: 1, SizeWords: 1, Latency: &latency},
		},
		{
			Timestamp:    ts.Add(3 * time.Millisecond),
			ConnectionID: "def67890-1234",
			Direction:    log.DirectionIn,
			Layer:        log.LayerConnection,
			Category:     log.CategoryMessage,
			LocalSide:    wire.SideServer,
			Message:      &log.MessageEvent{Sequence: 1, SizeWords: 3},
		},
		{
			Timestamp:    ts.Add(4 * time.Millisecond),
			ConnectionID: "def67890-1234",
			Layer:        log.LayerConnection,
			Category:     log.CategoryError,
			LocalSide:    wire.SideServer,
			Error:        &log.ErrorEventData{Layer: log.LayerConnection, Message: "frame truncated", Context: "receive"},
		},
		{
			Timestamp:    ts.Add(5 * time.Millisecond),
			ConnectionID: "abc12345-6789",
			Layer:        log.LayerConnection,
			Category:     log.CategoryState,
			LocalSide:    wire.SideClient,
			StateChange:  &log.StateChangeEvent{Entity: log.StateEntityConnection, OldState: "OPEN", NewState: "CLOSED", Reason: "closed"},
		},
	}
}

func TestFormatFrameEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[1])
	output := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.124456Z",
		"[conn:abc12345]",
		"CLIENT",
		"OUT",
		"TRANSPORT Frame",
		"8 bytes",
		"a1617801",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatMessageEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[2])
	output := buf.String()

	for _, want := range []string{"CONNECTION Message", "Seq: 1", "Size: 1 words", "Flush: 1.500ms"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatStateAndError(t *testing.T) {
	var buf bytes.Buffer
	events := sampleEvents()
	formatEvent(&buf, events[5])
	formatEvent(&buf, events[4])
	output := buf.String()

	for _, want := range []string{"OPEN -> CLOSED", "Reason: closed", "Message: frame truncated", "Context: receive"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestRunViewFilters(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	side := wire.SideServer
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Side: &side}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()

	if strings.Contains(output, "abc12345") {
		t.Errorf("client events should be filtered out, got: %s", output)
	}
	if got := strings.Count(output, "[conn:def67890]"); got != 2 {
		t.Errorf("expected 2 server events, got %d", got)
	}

	layer, err := ParseLayerFlag("transport")
	if err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	if err := RunView(path, ViewFilter{Layer: &layer}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if got := strings.Count(buf.String(), "[conn:"); got != 1 {
		t.Errorf("expected 1 transport event, got %d", got)
	}
}

func TestParseFlags(t *testing.T) {
	if _, err := ParseLayerFlag("wire"); err == nil {
		t.Error("expected error for unknown layer")
	}
	if d, err := ParseDirectionFlag("OUT"); err != nil || d != log.DirectionOut {
		t.Errorf("ParseDirectionFlag(OUT) = %v, %v", d, err)
	}
	if c, err := ParseCategoryFlag("error"); err != nil || c != log.CategoryError {
		t.Errorf("ParseCategoryFlag(error) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("control"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestStats(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	stats, err := collectStats(path)
	if err != nil {
		t.Fatalf("collectStats failed: %v", err)
	}

	if stats.TotalEvents != 6 {
		t.Errorf("TotalEvents = %d, want 6", stats.TotalEvents)
	}
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
	if len(stats.Connections) != 2 {
		t.Fatalf("Connections = %d, want 2", len(stats.Connections))
	}

	client := stats.Connections["abc12345-6789"]
	if client.Side != wire.SideClient || client.MessagesOut != 1 || client.WordsOut != 1 || !client.Closed {
		t.Errorf("unexpected client stats: %+v", client)
	}
	if client.MaxLatency != 1500*time.Microsecond {
		t.Errorf("MaxLatency = %v", client.MaxLatency)
	}
	server := stats.Connections["def67890-1234"]
	if server.MessagesIn != 1 || server.WordsIn != 3 || server.Closed {
		t.Errorf("unexpected server stats: %+v", server)
	}

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()
	for _, want := range []string{"Total Events: 6", "Connections: 2", "[abc12345] CLIENT", "closed", "Errors: 1"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestRunFilterBySide(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	outPath := filepath.Join(t.TempDir(), "filtered.tplog")

	count, err := RunFilter(path, FilterOptions{Output: outPath, Side: "client", Category: "state"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	reader, err := log.NewReader(outPath)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		if event.LocalSide != wire.SideClient || event.StateChange == nil {
			t.Errorf("unexpected event: %+v", event)
		}
	}
}

func TestRunFilterInvalidSide(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	if _, err := RunFilter(path, FilterOptions{Output: filepath.Join(t.TempDir(), "x.tplog"), Side: "router"}); err == nil {
		t.Error("expected error for invalid side")
	}
}

func TestExportJSONLAndCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "out.jsonl")
	if err := RunExport(path, "jsonl", jsonPath); err != nil {
		t.Fatalf("RunExport jsonl failed: %v", err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d", len(lines))
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if first["LocalSide"] != "client" {
		t.Errorf("LocalSide = %v, want client", first["LocalSide"])
	}

	csvPath := filepath.Join(dir, "out.csv")
	if err := RunExport(path, "csv", csvPath); err != nil {
		t.Fatalf("RunExport csv failed: %v", err)
	}
	data, err = os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "timestamp,connection_id,side,") {
		t.Errorf("unexpected CSV header: %s", data)
	}
	if !strings.Contains(string(data), "message,1,1") {
		t.Errorf("expected message row, got: %s", data)
	}

	if err := RunExport(path, "xml", ""); err == nil {
		t.Error("expected error for unknown format")
	}
}
