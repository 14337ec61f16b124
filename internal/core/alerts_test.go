package core

import "testing"

func TestGenerateAlerts(t *testing.T) {
	totals := map[string]Money{
		"Groceries":     Cents(5250),
		"Transport":     Cents(2000),
		"Entertainment": Cents(9000),
		"Utilities":     Cents(4250),
	}
	thresholds := Thresholds{
		"Groceries":     Cents(5000),
		"Transport":     Cents(2000), // equal is not over
		"Entertainment": Cents(8750),
		"Utilities":     Cents(4000),
		"Housing":       Cents(100), // no spending, never alerts
	}

	alerts := GenerateAlerts(totals, thresholds)
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts, got %d: %+v", len(alerts), alerts)
	}

	// Entertainment, Groceries and Utilities all exceed by 250: name order.
	want := []string{"Entertainment", "Groceries", "Utilities"}
	for i, name := range want {
		if alerts[i].Category != name {
			t.Fatalf("position %d: got %q, want %q", i, alerts[i].Category, name)
		}
		if alerts[i].ExceededBy != Cents(250) {
			t.Fatalf("%s exceeded by %d", name, alerts[i].ExceededBy.Cents)
		}
	}
}

func TestGenerateAlertsOrdersByOverage(t *testing.T) {
	alerts := GenerateAlerts(
		map[string]Money{"A": Cents(200), "B": Cents(1000)},
		Thresholds{"A": Cents(100), "B": Cents(100)},
	)
	if len(alerts) != 2 || alerts[0].Category != "B" || alerts[1].Category != "A" {
		t.Fatalf("unexpected order: %+v", alerts)
	}
}

func TestGenerateAlertsSkipsNonPositiveBudget(t *testing.T) {
	alerts := GenerateAlerts(map[string]Money{"A": Cents(1)}, Thresholds{"A": Cents(0)})
	if len(alerts) != 0 {
		t.Fatalf("expected no alert, got %+v", alerts)
	}
	if alerts == nil {
		t.Fatal("expected empty, non-nil slice")
	}
}

func TestGenerateAlertsMonotonicInBudget(t *testing.T) {
	totals := map[string]Money{"A": Cents(1000)}
	prev := GenerateAlerts(totals, Thresholds{"A": Cents(100)})
	for budget := int64(100); budget <= 1200; budget += 50 {
		cur := GenerateAlerts(totals, Thresholds{"A": Cents(budget)})
		if len(cur) > len(prev) {
			t.Fatalf("raising budget to %d created an alert", budget)
		}
		if len(cur) == 1 && len(prev) == 1 && cur[0].ExceededBy.Cents > prev[0].ExceededBy.Cents {
			t.Fatalf("raising budget to %d increased the overage", budget)
		}
		prev = cur
	}
	if len(prev) != 0 {
		t.Fatal("budget above total must not alert")
	}
}

func TestAlertMessage(t *testing.T) {
	a := Alert{Category: "Groceries", Actual: Cents(5250), Budget: Cents(5000), ExceededBy: Cents(250)}
	if got, want := a.Message(), "You have exceeded your budget for Groceries by 2.50€"; got != want {
		t.Fatalf("Message() = %q, want %q", got, want)
	}
}
