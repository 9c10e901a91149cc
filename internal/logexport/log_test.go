package logexport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func tempLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "status.log")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write log: %v", err)
		}
	}
	return path
}

const sampleLog = `// 2025-01-10
2025-01-10 09:00:00 - gateway (192.168.1.1): Ping: OK, HTTP: OK, Bandwidth: 420.50 Mbps
2025-01-10 09:05:00 - nas (192.168.1.50): Ping: FAIL, HTTP: FAIL, Bandwidth: N/A
// 2025-01-11
2025-01-11 10:00:00 - gateway (192.168.1.1): Ping: OK, HTTP: N/A, Bandwidth: N/A
2025-01-11 10:05:00 - nas (192.168.1.50): Ping: OK, HTTP: OK, Bandwidth: 99.10 Mbps
`

func TestParseLine(t *testing.T) {
	e, ok := ParseLine("2025-01-10 09:05:00 - nas (192.168.1.50): Ping: FAIL, HTTP: FAIL, Bandwidth: N/A")
	if !ok {
		t.Fatal("line did not parse")
	}
	if e.Device != "nas" || e.IP != "192.168.1.50" {
		t.Errorf("device: got %q (%q)", e.Device, e.IP)
	}
	if e.Date != "2025-01-10" || e.Time != "09:05:00" {
		t.Errorf("date/time: got %q %q", e.Date, e.Time)
	}
	if !e.Down {
		t.Error("Ping: FAIL must mark the entry down")
	}
}

func TestParseLineRejectsHeadersAndGarbage(t *testing.T) {
	for _, line := range []string{"// 2025-01-10", "", "   ", "not a log line"} {
		if _, ok := ParseLine(line); ok {
			t.Errorf("ParseLine(%q) unexpectedly parsed", line)
		}
	}
}

func TestParseLineDeviceWithParens(t *testing.T) {
	e, ok := ParseLine("2025-01-10 09:00:00 - switch (rack 2) (10.0.0.2): Ping: OK, HTTP: N/A, Bandwidth: N/A")
	if !ok {
		t.Fatal("line did not parse")
	}
	if e.Device != "switch (rack 2)" || e.IP != "10.0.0.2" {
		t.Errorf("got device %q ip %q", e.Device, e.IP)
	}
}

func TestReadEntries(t *testing.T) {
	path := tempLog(t, sampleLog)
	entries, err := ReadEntries(path)
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("entries: got %d, want 4", len(entries))
	}
	if !entries[1].Down {
		t.Error("nas FAIL entry not marked down")
	}
}

func TestReadEntriesMissingFile(t *testing.T) {
	entries, err := ReadEntries(filepath.Join(t.TempDir(), "nope.log"))
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}
	if entries != nil {
		t.Errorf("got %+v, want nil", entries)
	}
}

func TestExportDateFilter(t *testing.T) {
	path := tempLog(t, sampleLog)
	out, err := Export(path, Filter{StartDate: "2025-01-11", EndDate: "2025-01-11"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if strings.Contains(out, "2025-01-10 09:00:00") {
		t.Error("out-of-range line included")
	}
	if !strings.Contains(out, "2025-01-11 10:00:00") {
		t.Error("in-range line missing")
	}
	// Header lines survive text export
	if !strings.Contains(out, "// 2025-01-10") {
		t.Error("header lines dropped")
	}
}

func TestExportDeviceFilterMatchesNameOrIP(t *testing.T) {
	path := tempLog(t, sampleLog)

	byName, err := Export(path, Filter{Devices: []string{"NAS"}})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if strings.Contains(byName, "gateway") {
		t.Error("filter by name leaked other devices")
	}
	if !strings.Contains(byName, "nas (192.168.1.50)") {
		t.Error("filter by name dropped matches")
	}

	byIP, err := Export(path, Filter{Devices: []string{"192.168.1.1"}})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if strings.Contains(byIP, "nas") || !strings.Contains(byIP, "gateway") {
		t.Errorf("filter by IP: %q", byIP)
	}
}

func TestExportCSV(t *testing.T) {
	path := tempLog(t, sampleLog)
	out, err := Export(path, Filter{Format: "csv", Devices: []string{"gateway"}})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	lines := strings.Split(out, "\n")
	if lines[0] != "Timestamp,Device Name,IP Address,Ping,HTTP,Bandwidth" {
		t.Errorf("csv header: %q", lines[0])
	}
	if len(lines) != 3 {
		t.Fatalf("csv rows: got %d, want 3 (header + 2)", len(lines))
	}
	if lines[1] != "2025-01-10 09:00:00,gateway,192.168.1.1,OK,OK,420.50 Mbps" {
		t.Errorf("csv row: %q", lines[1])
	}
}

func TestWriterDateHeaderOnRollover(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.log")
	w := NewWriter(path)
	current := time.Date(2025, 2, 1, 23, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return current }

	if err := w.Append([]string{"2025-02-01 23:59:00 - gateway (192.168.1.1): Ping: OK, HTTP: N/A, Bandwidth: N/A"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	// Same day: no second header
	if err := w.Append([]string{"2025-02-01 23:59:30 - gateway (192.168.1.1): Ping: FAIL, HTTP: N/A, Bandwidth: N/A"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	// Date rolls over
	current = time.Date(2025, 2, 2, 0, 0, 30, 0, time.UTC)
	if err := w.Append([]string{"2025-02-02 00:00:30 - gateway (192.168.1.1): Ping: OK, HTTP: N/A, Bandwidth: N/A"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	raw, _ := os.ReadFile(path)
	content := string(raw)
	if strings.Count(content, "// 2025-02-01") != 1 {
		t.Errorf("header count for day one: %q", content)
	}
	if strings.Count(content, "// 2025-02-02") != 1 {
		t.Errorf("header count for day two: %q", content)
	}
}
