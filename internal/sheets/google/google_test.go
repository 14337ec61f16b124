package google

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"

	"spendwise/internal/core"
	ports "spendwise/internal/sheets"
)

type fakeValues struct {
	sheets    []string
	cleared   []string
	updated   map[string][][]any
	err       error
	ensureErr error
}

func (f *fakeValues) EnsureSheet(_ context.Context, _ string, title string) error {
	if f.ensureErr != nil {
		return f.ensureErr
	}
	if !slices.Contains(f.sheets, title) {
		f.sheets = append(f.sheets, title)
	}
	return nil
}

func (f *fakeValues) Clear(_ context.Context, _ string, rng string) error {
	f.cleared = append(f.cleared, rng)
	return f.err
}

func (f *fakeValues) Update(_ context.Context, _ string, rng string, values [][]any) error {
	if f.updated == nil {
		f.updated = map[string][][]any{}
	}
	f.updated[rng] = values
	return nil
}

func mayReport(t *testing.T) ports.MonthlyReport {
	t.Helper()
	summary, err := core.BuildMonthlySummary(2024, 5, core.Cents(7250), map[string]core.Money{
		"Groceries": core.Cents(5250),
		"Transport": core.Cents(2000),
	})
	if err != nil {
		t.Fatalf("BuildMonthlySummary: %v", err)
	}
	return ports.MonthlyReport{
		OwnerID:  1,
		Summary:  summary,
		Averages: map[string]core.Money{"Groceries": core.Cents(2625), "Transport": core.Cents(2000)},
		Alerts: []core.Alert{{
			Category: "Groceries", Actual: core.Cents(5250), Budget: core.Cents(5000), ExceededBy: core.Cents(250),
		}},
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), Config{SpreadsheetID: "sheet"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}

	_, err = New(context.Background(), Config{SpreadsheetID: "sheet", ServiceAccountFile: "/non/existent/sa.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected file read error, got %v", err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		baseName string
		year     int
		expected string
	}{
		{"Expenses", 2025, "2025 Expenses"},
		{"Dashboard", 2024, "2024 Dashboard"},
		{"", 2023, ""},
		{"Test Sheet", 2022, "2022 Test Sheet"},
		{"2025 Already Prefixed", 2024, "2025 Already Prefixed"},
	}

	for _, tt := range tests {
		got := yearPrefixedName(tt.baseName, tt.year)
		if got != tt.expected {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q",
				tt.baseName, tt.year, got, tt.expected)
		}
	}
}

func TestColumnName(t *testing.T) {
	tests := map[int]string{1: "A", 4: "D", 26: "Z", 27: "AA", 52: "AZ", 59: "BG"}
	for n, want := range tests {
		if got := columnName(n); got != want {
			t.Errorf("columnName(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestBlockRange(t *testing.T) {
	tests := []struct {
		month int
		rows  int
		want  string
	}{
		{1, 10, "'2024 Dashboard'!A1:D10"},
		{2, 3, "'2024 Dashboard'!F1:I3"},
		{12, 200, "'2024 Dashboard'!BD1:BG200"},
	}
	for _, tt := range tests {
		if got := blockRange("2024 Dashboard", tt.month, tt.rows); got != tt.want {
			t.Errorf("blockRange(month %d) = %q, want %q", tt.month, got, tt.want)
		}
	}
}

func TestReportRows(t *testing.T) {
	rows := reportRows(mayReport(t))

	want := [][]any{
		{"2024-05", "", "", ""},
		{"Owner", "1", "", ""},
		{"Category", "Amount", "Share %", "Average"},
		{"Groceries", "52.50", "72.41", "26.25"},
		{"Transport", "20.00", "27.59", "20.00"},
		{"Total", "72.50", "", ""},
		{"Alerts", "", "", ""},
		{"You have exceeded your budget for Groceries by 2.50€", "", "", ""},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("reportRows() =\n%v\nwant\n%v", rows, want)
	}
}

func TestWriteMonthlyReport(t *testing.T) {
	values := &fakeValues{}
	c := newClient(values, "sheet", "")

	rng, err := c.WriteMonthlyReport(context.Background(), mayReport(t))
	if err != nil {
		t.Fatalf("WriteMonthlyReport() error = %v", err)
	}
	if rng != "'2024 Dashboard #1'!U1:X8" {
		t.Errorf("range = %q", rng)
	}
	if !reflect.DeepEqual(values.sheets, []string{"2024 Dashboard #1"}) {
		t.Errorf("sheets %v", values.sheets)
	}
	if len(values.cleared) != 1 || values.cleared[0] != "'2024 Dashboard #1'!U1:X200" {
		t.Errorf("cleared %v", values.cleared)
	}
	if len(values.updated[rng]) != 8 {
		t.Errorf("updated %v", values.updated)
	}
}

func TestWriteMonthlyReport_OwnersDoNotShareBlocks(t *testing.T) {
	values := &fakeValues{}
	c := newClient(values, "sheet", "")

	first := mayReport(t)
	second := mayReport(t)
	second.OwnerID = 2

	rng1, err := c.WriteMonthlyReport(context.Background(), first)
	if err != nil {
		t.Fatalf("owner 1: %v", err)
	}
	rng2, err := c.WriteMonthlyReport(context.Background(), second)
	if err != nil {
		t.Fatalf("owner 2: %v", err)
	}
	if rng1 == rng2 {
		t.Fatalf("both owners wrote %q", rng1)
	}
	wantCleared := []string{"'2024 Dashboard #1'!U1:X200", "'2024 Dashboard #2'!U1:X200"}
	if !reflect.DeepEqual(values.cleared, wantCleared) {
		t.Errorf("cleared %v, want %v", values.cleared, wantCleared)
	}
	if got := values.updated[rng1][1]; !reflect.DeepEqual(got, []any{"Owner", "1", "", ""}) {
		t.Errorf("owner 1 block overwritten: %v", got)
	}
	if !reflect.DeepEqual(values.sheets, []string{"2024 Dashboard #1", "2024 Dashboard #2"}) {
		t.Errorf("sheets %v", values.sheets)
	}
}

func TestWriteMonthlyReport_Errors(t *testing.T) {
	boom := errors.New("quota exceeded")
	c := newClient(&fakeValues{err: boom}, "sheet", "Report")
	if _, err := c.WriteMonthlyReport(context.Background(), mayReport(t)); !errors.Is(err, boom) {
		t.Errorf("expected wrapped clear error, got %v", err)
	}

	noSheet := errors.New("permission denied")
	if _, err := newClient(&fakeValues{ensureErr: noSheet}, "sheet", "").WriteMonthlyReport(context.Background(), mayReport(t)); !errors.Is(err, noSheet) {
		t.Errorf("expected wrapped ensure error, got %v", err)
	}

	r := mayReport(t)
	r.OwnerID = 0
	if _, err := newClient(&fakeValues{}, "sheet", "").WriteMonthlyReport(context.Background(), r); err == nil {
		t.Error("expected error for missing owner")
	}

	r = mayReport(t)
	r.Summary.Month = 0
	if _, err := newClient(&fakeValues{}, "sheet", "").WriteMonthlyReport(context.Background(), r); err == nil {
		t.Error("expected error for month 0")
	}

	if _, err := (&Client{}).WriteMonthlyReport(context.Background(), mayReport(t)); err == nil {
		t.Error("expected error for uninitialized client")
	}
}
