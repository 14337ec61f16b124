package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/services"
	"spendwise/internal/sheets"
)

var errUsage = errors.New("usage")

type dashboardWriter = sheets.DashboardWriter

type app struct {
	expenses   *services.ExpenseService
	summaries  *services.SummaryService
	alerts     *services.AlertService
	categories []string

	// exporter is nil when no spreadsheet is configured.
	exporter func(ctx context.Context) (dashboardWriter, error)
	out      io.Writer
	now      func() time.Time
}

type command struct {
	summary string
	run     func(a *app, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"add":        {"record an expense", (*app).add},
	"edit":       {"replace the fields of an expense", (*app).edit},
	"delete":     {"delete an expense", (*app).delete},
	"get":        {"show one expense", (*app).get},
	"list":       {"list expenses, newest first", (*app).list},
	"summary":    {"monthly total and category shares", (*app).summary},
	"averages":   {"average expense per category in a month", (*app).averages},
	"years":      {"years with recorded expenses", (*app).years},
	"categories": {"configured categories and their budgets", (*app).categoriesCmd},
	"alerts":     {"categories over budget in a month", (*app).alertsCmd},
	"dashboard":  {"summary, averages, years and alerts of a month", (*app).dashboard},
	"export":     {"write the month's dashboard to Google Sheets", (*app).export},
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		a.usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	return cmd.run(a, ctx, args[1:])
}

func (a *app) usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(a.out, "usage: spese <command> [flags]")
	fmt.Fprintln(a.out)
	for _, name := range names {
		fmt.Fprintf(a.out, "  %-10s %s\n", name, commands[name].summary)
	}
}

func (a *app) today() core.Date {
	now := time.Now
	if a.now != nil {
		now = a.now
	}
	return core.DateOf(now())
}

// flags binds the options shared by every command.
type flags struct {
	*flag.FlagSet
	owner int64
}

func (a *app) newFlags(name string) *flags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	f := &flags{FlagSet: fs}
	fs.Int64Var(&f.owner, "owner", 0, "owner id")
	return f
}

func (f *flags) parse(args []string) error {
	if err := f.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if f.owner <= 0 {
		return fmt.Errorf("%w: -owner is required", errUsage)
	}
	return nil
}

// period adds -year and -month defaulting to the current month.
func (a *app) period(f *flags) (*int, *int) {
	today := a.today()
	return f.Int("year", today.Year(), "year"), f.Int("month", today.Month(), "month (1-12)")
}

// expenseFlags adds the editable fields of an expense.
type expenseFlags struct {
	date, category, amount, desc *string
}

func (a *app) expenseFlags(f *flags) expenseFlags {
	return expenseFlags{
		date:     f.String("date", a.today().String(), "date (YYYY-MM-DD)"),
		category: f.String("category", "", a.categoryHelp()),
		amount:   f.String("amount", "", "amount, e.g. 12.34 or 12,34"),
		desc:     f.String("desc", "", "description"),
	}
}

func (a *app) categoryHelp() string {
	if len(a.categories) == 0 {
		return "category"
	}
	return "category, one of: " + strings.Join(a.categories, ", ")
}

// checkCategory notes a category outside the configured vocabulary. The
// expense is still recorded.
func (a *app) checkCategory(category string) {
	category = strings.TrimSpace(category)
	if len(a.categories) == 0 || slices.Contains(a.categories, category) {
		return
	}
	fmt.Fprintf(a.out, "note: category %q is not in the configured list\n", category)
}

func (e expenseFlags) input() (services.ExpenseInput, error) {
	date, err := core.ParseDate(*e.date)
	if err != nil {
		return services.ExpenseInput{}, err
	}
	cents, err := core.ParseDecimalToCents(*e.amount)
	if err != nil {
		return services.ExpenseInput{}, err
	}
	return services.ExpenseInput{
		Date:        date,
		Category:    *e.category,
		AmountCents: cents,
		Description: *e.desc,
	}, nil
}

func (a *app) add(ctx context.Context, args []string) error {
	f := a.newFlags("add")
	ef := a.expenseFlags(f)
	if err := f.parse(args); err != nil {
		return err
	}
	in, err := ef.input()
	if err != nil {
		return err
	}
	a.checkCategory(in.Category)
	e, err := a.expenses.Create(ctx, f.owner, in)
	if err != nil {
		return err
	}
	a.printExpenses([]core.Expense{e})
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	f := a.newFlags("edit")
	id := f.Int64("id", 0, "expense id")
	ef := a.expenseFlags(f)
	if err := f.parse(args); err != nil {
		return err
	}
	in, err := ef.input()
	if err != nil {
		return err
	}
	a.checkCategory(in.Category)
	e, err := a.expenses.Update(ctx, f.owner, *id, in)
	if err != nil {
		return err
	}
	a.printExpenses([]core.Expense{e})
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	f := a.newFlags("delete")
	id := f.Int64("id", 0, "expense id")
	if err := f.parse(args); err != nil {
		return err
	}
	if err := a.expenses.Delete(ctx, f.owner, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %d\n", *id)
	return nil
}

func (a *app) get(ctx context.Context, args []string) error {
	f := a.newFlags("get")
	id := f.Int64("id", 0, "expense id")
	if err := f.parse(args); err != nil {
		return err
	}
	e, err := a.expenses.Get(ctx, f.owner, *id)
	if err != nil {
		return err
	}
	a.printExpenses([]core.Expense{e})
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	f := a.newFlags("list")
	year := f.Int("year", 0, "year (0 for every year)")
	month := f.Int("month", 0, "month (requires -year)")
	category := f.String("category", "", "category")
	page := f.Int("page", 1, "page number")
	size := f.Int("size", 0, "page size (default from PAGE_SIZE)")
	if err := f.parse(args); err != nil {
		return err
	}

	p, err := a.expenses.List(ctx, f.owner, services.ListQuery{
		Year:     *year,
		Month:    *month,
		Category: *category,
		Page:     *page,
		PageSize: *size,
	})
	if err != nil {
		return err
	}
	a.printExpenses(p.Items)
	fmt.Fprintf(a.out, "page %d of %d (%d expenses)\n", p.Page, p.TotalPages, p.TotalCount)
	if len(p.Years) > 0 {
		fmt.Fprintf(a.out, "years: %s\n", joinInts(p.Years))
	}
	return nil
}

func (a *app) summary(ctx context.Context, args []string) error {
	f := a.newFlags("summary")
	year, month := a.period(f)
	if err := f.parse(args); err != nil {
		return err
	}
	s, err := a.summaries.MonthlySummary(ctx, f.owner, *year, *month)
	if err != nil {
		return err
	}
	a.printSummary(s)
	return nil
}

func (a *app) averages(ctx context.Context, args []string) error {
	f := a.newFlags("averages")
	year, month := a.period(f)
	if err := f.parse(args); err != nil {
		return err
	}
	avgs, err := a.summaries.PerCategoryAverages(ctx, f.owner, *year, *month)
	if err != nil {
		return err
	}
	a.printAverages(avgs)
	return nil
}

func (a *app) years(ctx context.Context, args []string) error {
	f := a.newFlags("years")
	if err := f.parse(args); err != nil {
		return err
	}
	years, err := a.summaries.ListYears(ctx, f.owner)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, joinInts(years))
	return nil
}

func (a *app) categoriesCmd(_ context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: categories takes no arguments", errUsage)
	}
	budgets := a.alerts.Thresholds()
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tBUDGET")
	for _, name := range a.categories {
		budget := "-"
		if b, ok := budgets[name]; ok {
			budget = b.String()
		}
		fmt.Fprintf(tw, "%s\t%s\n", name, budget)
	}
	return tw.Flush()
}

func (a *app) alertsCmd(ctx context.Context, args []string) error {
	f := a.newFlags("alerts")
	year, month := a.period(f)
	if err := f.parse(args); err != nil {
		return err
	}
	alerts, err := a.alerts.GenerateAlerts(ctx, f.owner, *year, *month)
	if err != nil {
		return err
	}
	a.printAlerts(alerts)
	return nil
}

func (a *app) dashboard(ctx context.Context, args []string) error {
	f := a.newFlags("dashboard")
	year, month := a.period(f)
	if err := f.parse(args); err != nil {
		return err
	}
	d, err := a.summaries.Dashboard(ctx, f.owner, *year, *month, a.alerts.Thresholds())
	if err != nil {
		return err
	}
	a.printSummary(d.Summary)
	fmt.Fprintln(a.out)
	a.printAverages(d.Averages)
	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "years: %s\n", joinInts(d.Years))
	a.printAlerts(d.Alerts)
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	f := a.newFlags("export")
	year, month := a.period(f)
	if err := f.parse(args); err != nil {
		return err
	}
	if a.exporter == nil {
		return fmt.Errorf("%w: export requires GOOGLE_SPREADSHEET_ID and service account credentials", errUsage)
	}
	d, err := a.summaries.Dashboard(ctx, f.owner, *year, *month, a.alerts.Thresholds())
	if err != nil {
		return err
	}
	w, err := a.exporter(ctx)
	if err != nil {
		return err
	}
	rng, err := w.WriteMonthlyReport(ctx, sheets.MonthlyReport{
		OwnerID:  f.owner,
		Summary:  d.Summary,
		Averages: d.Averages,
		Alerts:   d.Alerts,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "exported to %s\n", rng)
	return nil
}

func (a *app) printExpenses(items []core.Expense) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, e := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Date, e.Category, e.Amount, e.Description)
	}
	tw.Flush()
}

func (a *app) printSummary(s core.MonthlySummary) {
	fmt.Fprintf(a.out, "%04d-%02d total %s\n", s.Year, s.Month, s.Total)
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tAMOUNT\tSHARE")
	for _, c := range s.Categories() {
		fmt.Fprintf(tw, "%s\t%s\t%.2f%%\n", c.Name, c.Amount, s.ByCategory[c.Name].Percentage)
	}
	tw.Flush()
}

func (a *app) printAverages(avgs map[string]core.Money) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tAVERAGE")
	for _, c := range core.SortedAmounts(avgs) {
		fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Amount)
	}
	tw.Flush()
}

func (a *app) printAlerts(alerts []core.Alert) {
	if len(alerts) == 0 {
		fmt.Fprintln(a.out, "no budget exceeded")
		return
	}
	for _, al := range alerts {
		fmt.Fprintln(a.out, al.Message())
	}
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, " ")
}
