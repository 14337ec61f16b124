package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	ports "spendwise/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Each month occupies a block of blockWidth columns followed by one empty
// column, so January starts at A, February at F and so on.
const (
	blockWidth = 4
	blockGap   = 1
	blockRows  = 200
)

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID      string
	DashboardSheetName string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// sheetsAPI is the subset of the Sheets API the exporter calls.
type sheetsAPI interface {
	// EnsureSheet adds a sheet titled title unless it already exists.
	EnsureSheet(ctx context.Context, spreadsheetID, title string) error
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error
}

type Client struct {
	values        sheetsAPI
	spreadsheetID string
	// Base name without year (e.g. "Dashboard"); the report year is prefixed.
	dashboardBase string
}

var _ ports.DashboardWriter = (*Client)(nil)

// New creates a Sheets client authenticated with service account
// credentials, inline JSON taking precedence over the file.
func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg.ServiceAccountJSON, cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(serviceSheets{svc: svc}, spreadsheetID, cfg.DashboardSheetName), nil
}

func newClient(values sheetsAPI, spreadsheetID, dashboardBase string) *Client {
	dashboardBase = strings.TrimSpace(dashboardBase)
	if dashboardBase == "" {
		dashboardBase = "Dashboard"
	}
	return &Client{values: values, spreadsheetID: spreadsheetID, dashboardBase: dashboardBase}
}

func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	serviceAccountJSON = strings.TrimSpace(serviceAccountJSON)
	serviceAccountFile = strings.TrimSpace(serviceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		var err error
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.DebugContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// serviceSheets adapts gsheet.Service to sheetsAPI.
type serviceSheets struct {
	svc *gsheet.Service
}

func (s serviceSheets) EnsureSheet(ctx context.Context, spreadsheetID, title string) error {
	ss, err := s.svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return err
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}
	_, err = s.svc.Spreadsheets.BatchUpdate(spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}).Context(ctx).Do()
	return err
}

func (s serviceSheets) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (s serviceSheets) Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}

// WriteMonthlyReport replaces the month's block in the owner's sheet
// "<year> <dashboard> #<owner>", adding the sheet when it is missing.
func (c *Client) WriteMonthlyReport(ctx context.Context, r ports.MonthlyReport) (string, error) {
	if c.values == nil {
		return "", errors.New("sheets service not initialized")
	}
	if r.OwnerID <= 0 {
		return "", fmt.Errorf("invalid owner: %d", r.OwnerID)
	}
	month := r.Summary.Month
	if month < 1 || month > 12 {
		return "", fmt.Errorf("invalid month: %d", month)
	}

	sheetName := c.dashboardSheetName(r.Summary.Year, r.OwnerID)
	if err := c.values.EnsureSheet(ctx, c.spreadsheetID, sheetName); err != nil {
		return "", fmt.Errorf("ensure sheet %q: %w", sheetName, err)
	}
	clearRng := blockRange(sheetName, month, blockRows)
	if err := c.values.Clear(ctx, c.spreadsheetID, clearRng); err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRng, err)
	}

	rows := reportRows(r)
	rng := blockRange(sheetName, month, len(rows))
	if err := c.values.Update(ctx, c.spreadsheetID, rng, rows); err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Monthly report exported",
		"owner_id", r.OwnerID,
		"year", r.Summary.Year,
		"month", month,
		"range", rng)
	return rng, nil
}

func (c *Client) dashboardSheetName(year int, ownerID int64) string {
	return fmt.Sprintf("%s #%d", yearPrefixedName(c.dashboardBase, year), ownerID)
}

// reportRows lays out a report as: title, owner, column headers, one row
// per category (largest first), the total, then the alert messages.
// Amounts are decimal strings so the sheet never sees binary floats.
func reportRows(r ports.MonthlyReport) [][]any {
	s := r.Summary
	rows := [][]any{
		{fmt.Sprintf("%04d-%02d", s.Year, s.Month), "", "", ""},
		{"Owner", strconv.FormatInt(r.OwnerID, 10), "", ""},
		{"Category", "Amount", "Share %", "Average"},
	}
	for _, c := range s.Categories() {
		share := s.ByCategory[c.Name]
		avg := ""
		if a, ok := r.Averages[c.Name]; ok {
			avg = a.String()
		}
		rows = append(rows, []any{c.Name, c.Amount.String(), strconv.FormatFloat(share.Percentage, 'f', 2, 64), avg})
	}
	rows = append(rows, []any{"Total", s.Total.String(), "", ""})
	if len(r.Alerts) > 0 {
		rows = append(rows, []any{"Alerts", "", "", ""})
		for _, a := range r.Alerts {
			rows = append(rows, []any{a.Message(), "", "", ""})
		}
	}
	return rows
}

// blockRange returns the A1 range of the month's block covering rows lines.
func blockRange(sheetName string, month, rows int) string {
	first := (month-1)*(blockWidth+blockGap) + 1
	last := first + blockWidth - 1
	return fmt.Sprintf("'%s'!%s1:%s%d", sheetName, columnName(first), columnName(last), rows)
}

// columnName converts a 1-based column index to its letters (1 -> A,
// 27 -> AA).
func columnName(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
