package logexport

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

const timeFormat = "2006-01-02 15:04:05"

// Writer appends status lines to the monitoring log, inserting a "//"
// date header whenever the calendar date rolls over.
type Writer struct {
	mu       sync.Mutex
	path     string
	lastDate string
	now      func() time.Time
}

// NewWriter creates a writer for the log at path.
func NewWriter(path string) *Writer {
	return &Writer{path: path, now: time.Now}
}

// Append writes lines to the log.
func (w *Writer) Append(lines []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log %s: %w", w.path, err)
	}
	defer f.Close()

	var b strings.Builder
	date := w.now().Format("2006-01-02")
	if date != w.lastDate {
		fmt.Fprintf(&b, "// %s\n", date)
		w.lastDate = date
	}
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// Entry is one parsed log line.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Device    string `json:"device"`
	IP        string `json:"ip"`
	Ping      string `json:"ping"`
	HTTP      string `json:"http"`
	Bandwidth string `json:"bandwidth"`
	Down      bool   `json:"down"`
}

// lineRe matches "TIMESTAMP - name (ip): Ping: X, HTTP: Y, Bandwidth: Z".
var lineRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}) - (.+) \((.+?)\): Ping: (.+?), HTTP: (.+?), Bandwidth: (.+)$`)

// ParseLine parses a single status line. Header lines ("//" prefix) and
// anything else unparseable return ok=false.
func ParseLine(line string) (Entry, bool) {
	line = strings.TrimRight(line, "\r\n")
	if strings.HasPrefix(line, "//") || strings.TrimSpace(line) == "" {
		return Entry{}, false
	}
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return Entry{}, false
	}
	e := Entry{
		Timestamp: m[1],
		Device:    m[2],
		IP:        m[3],
		Ping:      m[4],
		HTTP:      m[5],
		Bandwidth: m[6],
	}
	if parts := strings.SplitN(e.Timestamp, " ", 2); len(parts) == 2 {
		e.Date = parts[0]
		e.Time = parts[1]
	}
	e.Down = strings.EqualFold(e.Ping, "fail")
	return e, true
}

// Filter narrows an export. Zero values mean "no filter". Devices entries
// match either the device name or the IP, case-insensitively.
type Filter struct {
	Devices   []string
	StartDate string // YYYY-MM-DD inclusive
	EndDate   string // YYYY-MM-DD inclusive
	Format    string // "txt" (default) or "csv"
}

func (f Filter) matches(e Entry) bool {
	if f.StartDate != "" && e.Date < f.StartDate {
		return false
	}
	if f.EndDate != "" && e.Date > f.EndDate {
		return false
	}
	if len(f.Devices) == 0 {
		return true
	}
	for _, want := range f.Devices {
		want = strings.ToLower(strings.TrimSpace(want))
		if want == "" {
			continue
		}
		if strings.ToLower(e.Device) == want || strings.ToLower(e.IP) == want {
			return true
		}
	}
	return false
}

// ReadEntries parses every status line in the log file. A missing log file
// yields no entries and no error.
func ReadEntries(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read log %s: %w", path, err)
	}
	var out []Entry
	for _, line := range strings.Split(string(raw), "\n") {
		if e, ok := ParseLine(line); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Export renders the filtered log. Text output keeps the raw matching
// lines plus header lines; CSV output carries the well-known header row.
func Export(path string, f Filter) (string, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		raw = nil
	} else if err != nil {
		return "", fmt.Errorf("read log %s: %w", path, err)
	}

	if strings.EqualFold(f.Format, "csv") {
		lines := []string{"Timestamp,Device Name,IP Address,Ping,HTTP,Bandwidth"}
		for _, line := range strings.Split(string(raw), "\n") {
			e, ok := ParseLine(line)
			if !ok || !f.matches(e) {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s,%s,%s,%s,%s,%s",
				e.Timestamp, csvField(e.Device), e.IP, e.Ping, e.HTTP, csvField(e.Bandwidth)))
		}
		return strings.Join(lines, "\n"), nil
	}

	var lines []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "//") {
			// Header lines ride along in text exports
			lines = append(lines, line)
			continue
		}
		e, ok := ParseLine(line)
		if !ok || !f.matches(e) {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

// csvField quotes a value containing commas.
func csvField(s string) string {
	if strings.ContainsAny(s, ",\"") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
