package aggregate

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"aidance/internal/core"
)

var shanghai = time.FixedZone("CST", 8*3600)

func expense(id string, at time.Time, amount float64, category string) core.Record {
	return core.NewExpenseRecord(id, core.RecordBase{Timestamp: at.UnixMilli()}, core.Expense{Amount: amount, Category: category})
}

func mood(id string, at time.Time, tags ...string) core.Record {
	return core.NewMoodRecord(id, core.RecordBase{Timestamp: at.UnixMilli()}, core.Mood{Mood: "开心", Tags: tags})
}

func event(id string, at time.Time, category string) core.Record {
	return core.NewEventRecord(id, core.RecordBase{Timestamp: at.UnixMilli()}, core.Event{Title: "t", Category: category})
}

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, shanghai)
}

func ids(rs []core.Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestMonthlyExpenses(t *testing.T) {
	records := []core.Record{
		expense("in", at(2024, 3, 15, 12), 10, "餐饮"),
		expense("first", at(2024, 3, 1, 0), 10, "餐饮"),
		// 2024-02-29 23:00 in Shanghai is still February there.
		expense("feb", at(2024, 2, 29, 23), 10, "餐饮"),
		expense("year", at(2023, 3, 10, 12), 10, "餐饮"),
		mood("mood", at(2024, 3, 10, 12)),
	}
	got := ids(MonthlyExpenses(records, time.March, 2024, shanghai))
	if want := []string{"in", "first"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got := MonthlyExpenses(nil, time.March, 2024, shanghai); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestTotalSpent(t *testing.T) {
	if TotalSpent(nil) != 0 {
		t.Fatal("empty input must sum to 0")
	}
	now := at(2024, 3, 1, 12)
	rs := []core.Record{expense("a", now, 12.5, "餐饮"), expense("b", now, 7.5, "交通")}
	if got := TotalSpent(rs); got != 20 {
		t.Fatalf("got %v", got)
	}
}

func TestCategoryBreakdownStableDescending(t *testing.T) {
	now := at(2024, 3, 1, 12)
	rs := []core.Record{
		expense("1", now, 50, "交通"),
		expense("2", now, 100, "餐饮"),
		expense("3", now, 30, "购物"),
		expense("4", now, 20, "购物"),
		expense("5", now, 50, "娱乐"),
	}
	got := CategoryBreakdown(rs)
	want := []core.CategoryAmount{
		{Name: "餐饮", Amount: 100, Percent: 100},
		{Name: "交通", Amount: 50, Percent: 50},
		{Name: "购物", Amount: 50, Percent: 50},
		{Name: "娱乐", Amount: 50, Percent: 50},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
	if len(CategoryBreakdown(nil)) != 0 {
		t.Fatal("expected empty breakdown")
	}
}

func TestCheckBudget(t *testing.T) {
	now := at(2024, 3, 1, 12)
	cfg := core.BudgetConfig{TotalBudget: 1000, CategoryBudgets: map[string]float64{"餐饮": 200}}
	off := Options{}

	tests := []struct {
		name     string
		expense  core.Expense
		cfg      core.BudgetConfig
		existing []core.Record
		opts     Options
		want     string
	}{
		{
			name:     "category exceeded only",
			expense:  core.Expense{Amount: 100, Category: "餐饮"},
			cfg:      cfg,
			existing: []core.Record{expense("a", now, 150, "餐饮")},
			opts:     DefaultOptions(),
			want:     "⚠️ 您的【餐饮】消费已超支！(预算: ¥200, 已用: ¥250)",
		},
		{
			name:    "disabled budget",
			expense: core.Expense{Amount: 1e9, Category: "餐饮"},
			cfg:     core.BudgetConfig{CategoryBudgets: map[string]float64{"餐饮": 1}},
			opts:    DefaultOptions(),
		},
		{
			name:     "equal to total is not exceeded",
			expense:  core.Expense{Amount: 400, Category: "交通"},
			cfg:      cfg,
			existing: []core.Record{expense("a", now, 600, "购物")},
			opts:     off,
		},
		{
			name:     "first unit over total",
			expense:  core.Expense{Amount: 401, Category: "交通"},
			cfg:      cfg,
			existing: []core.Record{expense("a", now, 600, "购物")},
			opts:     off,
			want:     "⚠️ 本月总预算已超支！(预算: ¥1000, 已用: ¥1001)",
		},
		{
			name:     "category and total, category first",
			expense:  core.Expense{Amount: 300, Category: "餐饮"},
			cfg:      cfg,
			existing: []core.Record{expense("a", now, 800, "购物")},
			opts:     DefaultOptions(),
			want:     "⚠️ 您的【餐饮】消费已超支！(预算: ¥200, 已用: ¥300)\n⚠️ 本月总预算已超支！(预算: ¥1000, 已用: ¥1100)",
		},
		{
			name:     "near budget warnings",
			expense:  core.Expense{Amount: 70, Category: "餐饮"},
			cfg:      cfg,
			existing: []core.Record{expense("a", now, 100, "餐饮"), expense("b", now, 680, "购物")},
			opts:     DefaultOptions(),
			want:     "⚠️ 您的【餐饮】消费接近预算。(已用: 85%)\n⚠️ 本月总预算已使用 85%。",
		},
		{
			name:     "near budget disabled",
			expense:  core.Expense{Amount: 70, Category: "餐饮"},
			cfg:      cfg,
			existing: []core.Record{expense("a", now, 100, "餐饮"), expense("b", now, 680, "购物")},
			opts:     off,
		},
		{
			name:    "fractional amounts",
			expense: core.Expense{Amount: 12.5, Category: "餐饮"},
			cfg:     core.BudgetConfig{TotalBudget: 10},
			opts:    off,
			want:    "⚠️ 本月总预算已超支！(预算: ¥10, 已用: ¥12.5)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := CheckBudget(tc.expense, tc.cfg, tc.existing, tc.opts)
			if ok != (tc.want != "") || got != tc.want {
				t.Fatalf("got (%q, %v), want %q", got, ok, tc.want)
			}
		})
	}
}

func TestCheckBudgetZeroTotalNeverAlerts(t *testing.T) {
	now := at(2024, 3, 1, 12)
	for _, amount := range []float64{0, 1, 999, 1e6} {
		cfg := core.BudgetConfig{CategoryBudgets: map[string]float64{"餐饮": 1}}
		existing := []core.Record{expense("a", now, amount, "餐饮")}
		if msg, ok := CheckBudget(core.Expense{Amount: amount, Category: "餐饮"}, cfg, existing, DefaultOptions()); ok {
			t.Fatalf("amount %v: unexpected alert %q", amount, msg)
		}
	}
}

func TestCheckBudgetExactSumNotExceeded(t *testing.T) {
	now := at(2024, 3, 1, 12)
	cfg := core.BudgetConfig{TotalBudget: 100}
	for n := 1; n <= 10; n++ {
		var existing []core.Record
		for i := 0; i < n-1; i++ {
			existing = append(existing, expense(fmt.Sprint(i), now, 10, "其他"))
		}
		last := 100 - float64(10*(n-1))
		if msg, ok := CheckBudget(core.Expense{Amount: last, Category: "其他"}, cfg, existing, Options{}); ok {
			t.Fatalf("n=%d: equal-to-budget reported %q", n, msg)
		}
	}
}

func TestFilterByTab(t *testing.T) {
	rs := []core.Record{
		mood("m1", at(2024, 3, 1, 8), "工作", "开心"),
		expense("e1", at(2024, 3, 1, 9), 10, "餐饮"),
		event("v1", at(2024, 3, 1, 10), "工作"),
		mood("m2", at(2024, 3, 1, 11), "家庭"),
		expense("e2", at(2024, 3, 1, 12), 20, "交通"),
	}

	tests := []struct {
		tab      Tab
		category string
		want     []string
	}{
		{TabAll, AllCategories, []string{"e2", "m2", "v1", "e1", "m1"}},
		{TabMood, AllCategories, []string{"m2", "m1"}},
		{TabMood, "工作", []string{"m1"}},
		{TabExpense, "餐饮", []string{"e1"}},
		{TabEvent, "工作", []string{"v1"}},
		{TabAll, "工作", []string{"v1", "m1"}},
		{TabExpense, "", []string{"e2", "e1"}},
	}
	for _, tc := range tests {
		got := ids(FilterByTab(rs, tc.tab, tc.category))
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s/%s: got %v, want %v", tc.tab, tc.category, got, tc.want)
		}
	}

	for _, r := range FilterByTab(rs, TabMood, AllCategories) {
		if r.Type != core.RecordMood {
			t.Fatalf("mood tab returned %s", r.Type)
		}
	}
}

func TestCategories(t *testing.T) {
	now := at(2024, 3, 1, 12)
	rs := []core.Record{
		mood("m1", now, "工作", "开心"),
		expense("e1", now, 10, "餐饮"),
		expense("e2", now, 10, "交通"),
		expense("e3", now, 10, "餐饮"),
		mood("m2", now, "开心", "家庭"),
	}
	if got := Categories(rs, TabExpense); !reflect.DeepEqual(got, []string{"餐饮", "交通"}) {
		t.Fatalf("expense chips %v", got)
	}
	if got := Categories(rs, TabMood); !reflect.DeepEqual(got, []string{"工作", "开心", "家庭"}) {
		t.Fatalf("mood chips %v", got)
	}
	if got := Categories(rs, TabAll); len(got) != 0 {
		t.Fatalf("all tab chips %v", got)
	}
}

func TestOverview(t *testing.T) {
	rs := []core.Record{
		expense("a", at(2024, 3, 2, 12), 300, "餐饮"),
		expense("b", at(2024, 3, 3, 12), 200, "交通"),
		expense("c", at(2024, 4, 1, 12), 999, "交通"),
	}
	ov := Overview(rs, core.BudgetConfig{TotalBudget: 1000}, 2024, time.March, shanghai)
	if ov.Total != 500 || ov.Progress != 50 || ov.Month != 3 || len(ov.ByCategory) != 2 {
		t.Fatalf("unexpected overview %+v", ov)
	}
	if ov := Overview(rs, core.BudgetConfig{}, 2024, time.March, shanghai); ov.Progress != 0 {
		t.Fatalf("progress without budget = %v", ov.Progress)
	}
}

func TestParseTab(t *testing.T) {
	for in, want := range map[string]Tab{"": TabAll, "MOOD": TabMood, "expense": TabExpense, " event ": TabEvent, "x": TabAll} {
		if got := ParseTab(in); got != want {
			t.Fatalf("ParseTab(%q) = %q", in, got)
		}
	}
}
