// package formatter provides functions to export setlists to various formats (CSV, Markdown, plain text, JSON, tables)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/decklog/internal/models"
	"github.com/desertthunder/decklog/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatTable    Format = "table"
)

// Formats lists every supported format in display order.
var Formats = []Format{FormatTable, FormatText, FormatMarkdown, FormatCSV, FormatJSON}

// ParseFormat resolves a format name, accepting "md" and "txt" as aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "table", "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, name)
	}
}

// Extension returns the file extension for the format.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatText, FormatTable:
		return "txt"
	default:
		return string(f)
	}
}

// Setlist is a decoded session log prepared for export.
type Setlist struct {
	Name        string         `json:"name"`
	Source      string         `json:"source"`
	Version     string         `json:"version,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
	Size        int            `json:"size"`
	Entries     []models.Entry `json:"entries"`
}

// NewSetlist builds a [Setlist] named after the log file.
func NewSetlist(source, version string, snap models.Snapshot) *Setlist {
	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if name == "" || name == "." {
		name = "session"
	}
	return &Setlist{
		Name:        name,
		Source:      source,
		Version:     version,
		GeneratedAt: time.Now(),
		Size:        snap.Size,
		Entries:     snap.Entries,
	}
}

// Played returns the entries marked played, or every entry when none are.
func (s *Setlist) Played() []models.Entry {
	played := make([]models.Entry, 0, len(s.Entries))
	for _, e := range s.Entries {
		if e.Played {
			played = append(played, e)
		}
	}
	if len(played) == 0 {
		return s.Entries
	}
	return played
}

// Render converts the setlist to the given format.
func Render(s *Setlist, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(s)
	case FormatMarkdown:
		return ExportToMarkdown(s)
	case FormatText:
		return ExportToText(s)
	case FormatJSON:
		return ExportToJSON(s)
	case FormatTable:
		return []byte(ExportToTable(s) + "\n"), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

func startClock(e models.Entry) string {
	if e.StartTime.IsZero() {
		return ""
	}
	return e.StartTime.Format("15:04:05")
}

func entryRecord(e models.Entry) []string {
	return []string{
		strconv.FormatUint(uint64(e.Row), 10),
		startClock(e),
		strconv.Itoa(e.Deck),
		e.Artist,
		e.Title,
		e.Album,
		e.Genre,
		strconv.Itoa(e.BPM),
		e.Key,
		strconv.Itoa(e.Length),
		e.Filename,
	}
}

// ExportToCSV converts a Setlist to CSV format with columns: Row, Start, Deck, Artist, Title, Album, Genre, BPM, Key, Length, Filename
func ExportToCSV(s *Setlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Row", "Start", "Deck", "Artist", "Title", "Album", "Genre", "BPM", "Key", "Length", "Filename"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range s.Entries {
		if err := writer.Write(entryRecord(e)); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Setlist to Markdown format
func ExportToMarkdown(s *Setlist) ([]byte, error) {
	var buf bytes.Buffer
	played := s.Played()

	fmt.Fprintf(&buf, "# %s\n\n", s.Name)
	fmt.Fprintf(&buf, "**Source**: `%s`\n", s.Source)
	if s.Version != "" {
		fmt.Fprintf(&buf, "**Format**: %s\n", s.Version)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(played))
	fmt.Fprintf(&buf, "**Log size**: %s\n\n", humanize.Bytes(uint64(max(s.Size, 0))))

	buf.WriteString("## Setlist\n\n")
	for i, e := range played {
		details := []string{}
		if e.BPM > 0 {
			details = append(details, fmt.Sprintf("%d BPM", e.BPM))
		}
		if e.Key != "" {
			details = append(details, e.Key)
		}
		if e.Length > 0 {
			details = append(details, shared.FormatDuration(e.Length))
		}
		detailPart := ""
		if len(details) > 0 {
			detailPart = fmt.Sprintf(" [%s]", strings.Join(details, ", "))
		}
		clock := startClock(e)
		if clock != "" {
			clock = "`" + clock + "` "
		}
		fmt.Fprintf(&buf, "%d. %s%s%s\n", i+1, clock, e.String(), detailPart)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Setlist to plain text format
func ExportToText(s *Setlist) ([]byte, error) {
	var buf bytes.Buffer
	played := s.Played()

	fmt.Fprintf(&buf, "Setlist: %s\n", s.Name)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(played))

	for i, e := range played {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, e.String())
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a Setlist to indented JSON.
func ExportToJSON(s *Setlist) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal setlist: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToTable renders every entry as a rounded table.
func ExportToTable(s *Setlist) string {
	headers := []string{"#", "Start", "Deck", "Artist", "Title", "BPM", "Key", "Length"}
	rows := make([][]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		length := ""
		if e.Length > 0 {
			length = shared.FormatDuration(e.Length)
		}
		bpm := ""
		if e.BPM > 0 {
			bpm = strconv.Itoa(e.BPM)
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(e.Row), 10), startClock(e), strconv.Itoa(e.Deck), e.Artist, e.Title, bpm, e.Key, length,
		})
	}
	aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignRight}
	return renderTable(headers, rows, aligns)
}

// PlaysTable renders recorded plays as a rounded table, newest first.
func PlaysTable(plays []*models.Play, now time.Time) string {
	headers := []string{"Seq", "Status", "Started", "Track", "Deck"}
	rows := make([][]string, 0, len(plays))
	for _, p := range plays {
		rows = append(rows, []string{
			strconv.Itoa(p.Sequence()),
			string(p.Status()),
			humanize.RelTime(p.StartedAt(), now, "ago", "from now"),
			p.Entry().String(),
			strconv.Itoa(p.Entry().Deck),
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight})
}

// WriteExport renders the setlist and writes it to path.
//
// Defaults to {setlist.Name}_setlist.{ext} as the filename.
func WriteExport(s *Setlist, f Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_setlist.%s", s.Name, f.Extension())
	}

	data, err := Render(s, f)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", f, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}

	return path, nil
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
