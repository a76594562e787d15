package sheets

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rahimovschool/intakebot/internal/models"
)

// fakeValues implements valuesAPI with an in-memory worksheet.
type fakeValues struct {
	rows      [][]interface{}
	failGet   bool
	failWrite bool
	updates   int
}

func (f *fakeValues) Get(ctx context.Context, readRange string) ([][]interface{}, error) {
	if f.failGet {
		return nil, fmt.Errorf("worksheet unreachable")
	}
	switch readRange {
	case headerRange:
		if len(f.rows) == 0 {
			return nil, nil
		}
		return f.rows[:1], nil
	case recentRange:
		if len(f.rows) <= 1 {
			return nil, nil
		}
		return f.rows[1:], nil
	default:
		return f.rows, nil
	}
}

func (f *fakeValues) Update(ctx context.Context, writeRange string, rows [][]interface{}) error {
	if f.failWrite {
		return fmt.Errorf("worksheet unreachable")
	}
	f.updates++
	if len(f.rows) == 0 {
		f.rows = append(f.rows, rows[0])
	} else {
		f.rows[0] = rows[0]
	}
	return nil
}

func (f *fakeValues) Append(ctx context.Context, writeRange string, rows [][]interface{}) error {
	if f.failWrite {
		return fmt.Errorf("worksheet unreachable")
	}
	f.rows = append(f.rows, rows...)
	return nil
}

func connectedGateway(api valuesAPI) *Gateway {
	return &Gateway{api: api, connected: true, spreadsheetID: "test-spreadsheet"}
}

func registration(name string) *models.Registration {
	return &models.Registration{
		Name:         name,
		District:     "Chilonzor",
		Phone:        "+998901234567",
		UserID:       42,
		DisplayName:  "Test User",
		Username:     "tester",
		RegisteredAt: time.Date(2026, 8, 31, 12, 30, 45, 0, time.UTC),
	}
}

func TestEnsureHeaderIdempotent(t *testing.T) {
	fake := &fakeValues{}
	g := connectedGateway(fake)
	ctx := context.Background()

	if err := g.ensureHeaderLocked(ctx); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if err := g.ensureHeaderLocked(ctx); err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	if len(fake.rows) != 1 {
		t.Fatalf("expected exactly one header row, got %d rows", len(fake.rows))
	}
	if fake.updates != 1 {
		t.Errorf("expected one header write, got %d", fake.updates)
	}
	if got := fmt.Sprint(fake.rows[0][1]); got != "Ism" {
		t.Errorf("header column 2 = %q, want Ism", got)
	}
}

func TestAddRegistrationSequencesAreGapFree(t *testing.T) {
	fake := &fakeValues{}
	g := connectedGateway(fake)
	ctx := context.Background()

	if err := g.ensureHeaderLocked(ctx); err != nil {
		t.Fatalf("ensure header: %v", err)
	}

	for i := 1; i <= 5; i++ {
		reg := registration(fmt.Sprintf("User%d", i))
		if !g.AddRegistration(ctx, reg) {
			t.Fatalf("append %d failed", i)
		}
		if reg.Sequence != int64(i) {
			t.Errorf("append %d: sequence = %d, want %d", i, reg.Sequence, i)
		}
	}

	// Header + 5 data rows.
	if len(fake.rows) != 6 {
		t.Errorf("expected 6 rows, got %d", len(fake.rows))
	}
}

func TestAddRegistrationRowLayout(t *testing.T) {
	fake := &fakeValues{}
	g := connectedGateway(fake)
	ctx := context.Background()

	if err := g.ensureHeaderLocked(ctx); err != nil {
		t.Fatalf("ensure header: %v", err)
	}
	if !g.AddRegistration(ctx, registration("Ali")) {
		t.Fatal("append failed")
	}

	row := fake.rows[1]
	if len(row) != len(headerRow) {
		t.Fatalf("row has %d columns, want %d", len(row), len(headerRow))
	}
	want := []string{"1", "Ali", "Chilonzor", "+998901234567", "42", "Test User", "tester", "2026-08-31", "12:30:45", statusNew}
	for i, w := range want {
		if got := fmt.Sprint(row[i]); got != w {
			t.Errorf("column %d = %q, want %q", i+1, got, w)
		}
	}
}

func TestAddRegistrationReportsFailure(t *testing.T) {
	fake := &fakeValues{failWrite: true}
	g := connectedGateway(fake)
	ctx := context.Background()

	if g.AddRegistration(ctx, registration("Ali")) {
		t.Error("expected false when append fails")
	}

	fake.failWrite = false
	fake.failGet = true
	if g.AddRegistration(ctx, registration("Ali")) {
		t.Error("expected false when row count read fails")
	}
}

func TestAddRegistrationWhenDisconnected(t *testing.T) {
	// No credentials configured: the lazy connect attempt fails and the
	// append degrades to false without panicking.
	g := NewGateway()
	if g.AddRegistration(context.Background(), registration("Ali")) {
		t.Error("expected false from disconnected gateway")
	}
	if g.Connected() {
		t.Error("gateway must stay disconnected without credentials")
	}
}

func TestRowCount(t *testing.T) {
	fake := &fakeValues{}
	g := connectedGateway(fake)
	ctx := context.Background()

	if err := g.ensureHeaderLocked(ctx); err != nil {
		t.Fatalf("ensure header: %v", err)
	}
	count, err := g.RowCount(ctx)
	if err != nil || count != 0 {
		t.Errorf("empty sheet RowCount = %d, %v; want 0, nil", count, err)
	}

	g.AddRegistration(ctx, registration("Ali"))
	g.AddRegistration(ctx, registration("Vali"))

	count, err = g.RowCount(ctx)
	if err != nil || count != 2 {
		t.Errorf("RowCount = %d, %v; want 2, nil", count, err)
	}
}

func TestRecent(t *testing.T) {
	fake := &fakeValues{}
	g := connectedGateway(fake)
	ctx := context.Background()

	if err := g.ensureHeaderLocked(ctx); err != nil {
		t.Fatalf("ensure header: %v", err)
	}
	for i := 1; i <= 4; i++ {
		g.AddRegistration(ctx, registration(fmt.Sprintf("User%d", i)))
	}

	regs, err := g.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(regs) != 2 {
		t.Fatalf("Recent returned %d registrations, want 2", len(regs))
	}
	if regs[0].Name != "User3" || regs[1].Name != "User4" {
		t.Errorf("Recent = %q, %q; want User3, User4", regs[0].Name, regs[1].Name)
	}
	if regs[1].Sequence != 4 {
		t.Errorf("parsed sequence = %d, want 4", regs[1].Sequence)
	}
	if regs[1].Phone != "+998901234567" || regs[1].UserID != 42 {
		t.Errorf("parsed row lost fields: %+v", regs[1])
	}
}

func TestSpreadsheetURL(t *testing.T) {
	g := connectedGateway(&fakeValues{})
	if got := g.SpreadsheetURL(); got != "https://docs.google.com/spreadsheets/d/test-spreadsheet" {
		t.Errorf("SpreadsheetURL = %q", got)
	}

	empty := NewGateway()
	if got := empty.SpreadsheetURL(); got != "" {
		t.Errorf("disconnected SpreadsheetURL = %q, want empty", got)
	}
}
