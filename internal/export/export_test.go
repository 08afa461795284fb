package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func sampleRecords() []Record {
	return []Record{
		{Sequence: 1, Text: "AV C101", Row: 0, X1: 10, Y1: 20, X2: 51, Y2: 60, Confidence: 0.91234},
		{Sequence: 2, Text: "", Row: 0, X1: 80, Y1: 22, X2: 120, Y2: 62, Confidence: 0.5},
		{Sequence: 3, Text: "FV, 12", Row: 1, X1: 10, Y1: 100, X2: 50, Y2: 140, Confidence: 1},
	}
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	if !bytes.HasPrefix(data, []byte(utf8BOM)) {
		t.Fatal("CSV should start with a UTF-8 byte order mark")
	}
	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	return rows
}

func TestRecord_Derived(t *testing.T) {
	r := Record{X1: 10, Y1: 20, X2: 51, Y2: 61, Confidence: 0.12345}
	if r.CenterX() != 30 || r.CenterY() != 40 {
		t.Errorf("center: got (%d,%d), want (30,40)", r.CenterX(), r.CenterY())
	}
	if r.Width() != 41 || r.Height() != 41 {
		t.Errorf("size: got %dx%d, want 41x41", r.Width(), r.Height())
	}
	if r.RoundedConfidence() != 0.123 {
		t.Errorf("RoundedConfidence = %v, want 0.123", r.RoundedConfidence())
	}
}

func TestEncodeCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, sampleRecords(), false); err != nil {
		t.Fatalf("EncodeCSV failed: %v", err)
	}

	rows := readCSV(t, buf.Bytes())
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}

	wantHeader := "序號,識別內容,Row,X,Y,Width,Height,X1,Y1,X2,Y2,Confidence"
	if got := strings.Join(rows[0], ","); got != wantHeader {
		t.Errorf("header = %s, want %s", got, wantHeader)
	}

	want := []string{"1", "AV C101", "0", "30", "40", "41", "40", "10", "20", "51", "60", "0.912"}
	if strings.Join(rows[1], "|") != strings.Join(want, "|") {
		t.Errorf("row 1 = %v, want %v", rows[1], want)
	}
	if rows[2][1] != "" || rows[2][11] != "0.5" {
		t.Errorf("row 2 = %v", rows[2])
	}
	// Commas in text are quoted, not split
	if rows[3][1] != "FV, 12" || rows[3][11] != "1" {
		t.Errorf("row 3 = %v", rows[3])
	}
}

func TestWriteCSV_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "empty_results.csv")
	if err := WriteCSV(path, nil, false); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read CSV: %v", err)
	}
	rows := readCSV(t, data)
	if len(rows) != 1 {
		t.Errorf("expected header only, got %d rows", len(rows))
	}
}

func TestResultsCSVPath(t *testing.T) {
	got := ResultsCSVPath("/out", "/in/layout.page1.jpg")
	if got != filepath.Join("/out", "layout.page1_results.csv") {
		t.Errorf("ResultsCSVPath = %s", got)
	}
}

func TestDataset(t *testing.T) {
	d := NewDataset()
	if d.RunID == "" {
		t.Error("expected a run id")
	}

	d.AddImage("a.jpg", sampleRecords()[:2])
	d.AddImage("empty.jpg", nil)
	d.AddImage("b.jpg", sampleRecords()[2:])

	if d.Len() != 3 {
		t.Errorf("Len = %d, want 3", d.Len())
	}
	if got := strings.Join(d.Images(), ","); got != "a.jpg,empty.jpg,b.jpg" {
		t.Errorf("Images = %s", got)
	}

	records := d.Records()
	if records[0].Image != "a.jpg" || records[1].Image != "a.jpg" || records[2].Image != "b.jpg" {
		t.Errorf("records not tagged with image: %+v", records)
	}

	// Returned slices are copies
	records[0].Text = "changed"
	if d.Records()[0].Text == "changed" {
		t.Error("Records should return a copy")
	}

	if NewDataset().RunID == d.RunID {
		t.Error("run ids should be unique")
	}
}

func TestDataset_WriteCombined(t *testing.T) {
	dir := t.TempDir()
	d := NewDataset()
	d.AddImage("a.jpg", sampleRecords())

	paths, err := d.WriteCombined(dir)
	if err != nil {
		t.Fatalf("WriteCombined failed: %v", err)
	}

	data, err := os.ReadFile(paths.CSV)
	if err != nil {
		t.Fatalf("failed to read combined CSV: %v", err)
	}
	rows := readCSV(t, data)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[0][0] != ColumnImage || rows[1][0] != "a.jpg" {
		t.Errorf("combined CSV should start with the image column, got %v / %v", rows[0], rows[1])
	}

	f, err := excelize.OpenFile(paths.Excel)
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close()

	if f.GetSheetName(0) != SheetName {
		t.Errorf("sheet = %q, want %q", f.GetSheetName(0), SheetName)
	}
	xrows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(xrows) != 4 {
		t.Fatalf("expected 4 workbook rows, got %d", len(xrows))
	}
	if xrows[0][2] != ColumnText || xrows[1][2] != "AV C101" {
		t.Errorf("workbook rows = %v / %v", xrows[0], xrows[1])
	}
	if xrows[1][12] != "0.912" {
		t.Errorf("confidence cell = %q, want 0.912", xrows[1][12])
	}
}

func TestDataset_WriteCombinedEmpty(t *testing.T) {
	dir := t.TempDir()
	paths, err := NewDataset().WriteCombined(dir)
	if err != nil {
		t.Fatalf("WriteCombined failed: %v", err)
	}
	for _, p := range []string{paths.CSV, paths.Excel} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}
}

func TestFormatSummary(t *testing.T) {
	got := FormatSummary(sampleRecords()[:1])
	want := "Total labels detected: 1\n" + strings.Repeat("-", 40) + "\n  1. AV C101"
	if got != want {
		t.Errorf("FormatSummary =\n%s\nwant\n%s", got, want)
	}

	if !strings.HasPrefix(FormatSummary(nil), "Total labels detected: 0") {
		t.Error("empty summary should report zero labels")
	}
}

func TestCopyRow(t *testing.T) {
	row := copyRow("run-1", sampleRecords()[0])
	if len(row) != len(copyColumns) {
		t.Fatalf("copyRow has %d values for %d columns", len(row), len(copyColumns))
	}
	if row[0] != "run-1" || row[3] != "AV C101" || row[9] != 0.912 {
		t.Errorf("copyRow = %v", row)
	}
}

func TestNewPostgresSink_NoURL(t *testing.T) {
	if _, err := NewPostgresSink(t.Context(), ""); err == nil {
		t.Error("expected error without database URL")
	}
}

func TestPostgresSink_Write(t *testing.T) {
	url := os.Getenv("CIRCLE_OCR_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("skipping: CIRCLE_OCR_TEST_DATABASE_URL not set")
	}

	ctx := t.Context()
	sink, err := NewPostgresSink(ctx, url)
	if err != nil {
		t.Fatalf("NewPostgresSink failed: %v", err)
	}
	defer sink.Close()

	d := NewDataset()
	d.AddImage("board.jpg", sampleRecords())
	d.AddImage("empty.jpg", nil)
	t.Cleanup(func() {
		sink.db.Exec("DELETE FROM "+TableName+" WHERE run_id = $1", d.RunID)
	})

	n, err := sink.Write(ctx, d)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Write returned %d rows, want 3", n)
	}

	var count int
	var text string
	var conf float64
	err = sink.db.QueryRowContext(ctx,
		"SELECT count(*) OVER (), text, confidence FROM "+TableName+" WHERE run_id = $1 ORDER BY sequence LIMIT 1",
		d.RunID).Scan(&count, &text, &conf)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 3 {
		t.Errorf("stored %d rows, want 3", count)
	}
	if text != "AV C101" || conf != 0.912 {
		t.Errorf("first row = %q %v, want \"AV C101\" 0.912", text, conf)
	}

	n, err = sink.Write(ctx, NewDataset())
	if err != nil || n != 0 {
		t.Errorf("empty dataset: got %d, %v", n, err)
	}
}
