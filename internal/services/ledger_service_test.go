package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"envelopes/internal/amqp"
	"envelopes/internal/cache"
	"envelopes/internal/core"
	"envelopes/internal/ledger/memory"
	"envelopes/internal/sheets"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEventMessage
	err    error
	closed bool
}

func (p *fakePublisher) PublishLedgerEvent(_ context.Context, msg *amqp.LedgerEventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
	return p.err
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func (p *fakePublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

var march = time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*LedgerService, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	reports := cache.NewLRUCache[core.PeriodReport](16, time.Minute)
	svc := NewLedgerService(memory.New(), reports, pub)
	svc.now = func() time.Time { return march }
	return svc, pub
}

func mustEnvelope(t *testing.T, svc *LedgerService, group, name string) core.Envelope {
	t.Helper()
	ctx := context.Background()
	g, err := svc.SaveEnvelopeGroup(ctx, core.EnvelopeGroup{Description: group})
	if err != nil {
		t.Fatalf("SaveEnvelopeGroup: %v", err)
	}
	e, err := svc.SaveEnvelope(ctx, core.Envelope{Description: name, Group: g})
	if err != nil {
		t.Fatalf("SaveEnvelope: %v", err)
	}
	return e
}

func mustBudget(t *testing.T, svc *LedgerService, e core.Envelope, amount string) core.Budget {
	t.Helper()
	b, err := svc.SaveBudget(context.Background(), core.Budget{
		Envelope: e,
		Schedule: core.BudgetSchedule{BeginDate: march},
		Amount:   decimal.NewNullDecimal(decimal.RequireFromString(amount)),
	})
	if err != nil {
		t.Fatalf("SaveBudget: %v", err)
	}
	return b
}

func findBudget(budgets []core.Budget, envelopeID uuid.UUID) (core.Budget, bool) {
	for _, b := range budgets {
		if b.Envelope.ID == envelopeID {
			return b, true
		}
	}
	return core.Budget{}, false
}

func budgetFor(t *testing.T, svc *LedgerService, envelopeID uuid.UUID) core.Budget {
	t.Helper()
	budgets, err := svc.GetBudgets(context.Background(), march, core.FilterAll)
	if err != nil {
		t.Fatalf("GetBudgets: %v", err)
	}
	b, ok := findBudget(budgets, envelopeID)
	if !ok {
		t.Fatalf("no budget for envelope %s", envelopeID)
	}
	return b
}

func TestSaveBudget_UpdatesExistingLine(t *testing.T) {
	svc, pub := newTestService(t)
	groceries := mustEnvelope(t, svc, "Living", "Groceries")

	first := mustBudget(t, svc, groceries, "100")
	second := mustBudget(t, svc, groceries, "150")

	if first.ID != second.ID {
		t.Errorf("expected the same budget row, got %s and %s", first.ID, second.ID)
	}
	got := budgetFor(t, svc, groceries.ID)
	if !got.Remaining.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Remaining = %s, want 150", got.Remaining)
	}
	kinds := pub.kinds()
	if len(kinds) == 0 || kinds[len(kinds)-1] != amqp.EventBudget {
		t.Errorf("expected a budget event last, got %v", kinds)
	}
}

func TestSaveBudget_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		budget core.Budget
	}{
		{"missing schedule", core.Budget{Envelope: core.Envelope{Entity: core.Entity{ID: uuid.New()}}}},
		{"unknown envelope", core.Budget{
			Envelope: core.Envelope{Entity: core.Entity{ID: uuid.New()}},
			Schedule: core.BudgetSchedule{BeginDate: march},
			Amount:   decimal.NewNullDecimal(decimal.NewFromInt(1)),
		}},
		{"income envelope", core.Budget{
			Envelope: core.IncomeEnvelope(),
			Schedule: core.BudgetSchedule{BeginDate: march},
			Amount:   decimal.NewNullDecimal(decimal.NewFromInt(1)),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveBudget(ctx, tt.budget)
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestTransferBudget(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	rent := mustEnvelope(t, svc, "Home", "Rent")
	fun := mustEnvelope(t, svc, "Leisure", "Fun")
	mustBudget(t, svc, rent, "100")
	mustBudget(t, svc, fun, "20")

	if err := svc.TransferBudget(ctx, march, rent.ID, fun.ID, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("TransferBudget: %v", err)
	}

	if got := budgetFor(t, svc, rent.ID).Remaining; !got.Equal(decimal.NewFromInt(50)) {
		t.Errorf("source Remaining = %s, want 50", got)
	}
	if got := budgetFor(t, svc, fun.ID).Remaining; !got.Equal(decimal.NewFromInt(70)) {
		t.Errorf("destination Remaining = %s, want 70", got)
	}
}

func TestTransferBudget_UnbudgetedDestination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	rent := mustEnvelope(t, svc, "Home", "Rent")
	fresh := mustEnvelope(t, svc, "Home", "Repairs")
	mustBudget(t, svc, rent, "80")

	if err := svc.TransferBudget(ctx, march, rent.ID, fresh.ID, decimal.NewFromInt(30)); err != nil {
		t.Fatalf("TransferBudget: %v", err)
	}
	if got := budgetFor(t, svc, fresh.ID).AmountOrZero(); !got.Equal(decimal.NewFromInt(30)) {
		t.Errorf("destination Amount = %s, want 30", got)
	}
}

func TestTransferBudget_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	rent := mustEnvelope(t, svc, "Home", "Rent")

	tests := []struct {
		name    string
		from    uuid.UUID
		to      uuid.UUID
		amount  decimal.Decimal
		wantErr error
	}{
		{"zero amount", rent.ID, uuid.New(), decimal.Zero, core.ErrValidation},
		{"negative amount", rent.ID, uuid.New(), decimal.NewFromInt(-5), core.ErrValidation},
		{"same envelope", rent.ID, rent.ID, decimal.NewFromInt(5), core.ErrValidation},
		{"missing destination", rent.ID, uuid.New(), decimal.NewFromInt(5), core.ErrEnvelopeNotInPeriod},
		{"missing source", uuid.New(), rent.ID, decimal.NewFromInt(5), core.ErrEnvelopeNotInPeriod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.TransferBudget(ctx, march, tt.from, tt.to, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateAccount_DebtStartingBalance(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	card, err := svc.CreateAccount(ctx, core.Account{Description: "Credit Card", OnBudget: true}, decimal.NewFromInt(-100), march)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	debt := budgetFor(t, svc, card.ID)
	if !debt.Envelope.IsDebt() {
		t.Errorf("expected a debt envelope, got group %q", debt.Envelope.Group.Description)
	}
	if !debt.Remaining.Equal(decimal.NewFromInt(-100)) {
		t.Errorf("debt Remaining = %s, want -100", debt.Remaining)
	}

	accounts, err := svc.GetAccounts(ctx, march, core.FilterStandard)
	if err != nil {
		t.Fatalf("GetAccounts: %v", err)
	}
	if len(accounts) != 1 || !accounts[0].Balance.Equal(decimal.NewFromInt(-100)) {
		t.Errorf("unexpected accounts: %+v", accounts)
	}
	if kinds := pub.kinds(); len(kinds) != 1 || kinds[0] != amqp.EventAccount {
		t.Errorf("expected one account event, got %v", kinds)
	}
}

func TestCreateAccount_PositiveBalanceIsIncome(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, core.Account{Description: "Checking", OnBudget: true}, decimal.NewFromInt(500), march); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	schedule, err := svc.GetSchedule(ctx, march)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if !schedule.Income.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Income = %s, want 500", schedule.Income)
	}
	if !schedule.ToBudget.Equal(decimal.NewFromInt(500)) {
		t.Errorf("ToBudget = %s, want 500", schedule.ToBudget)
	}
}

func TestCreateAccount_RejectsExisting(t *testing.T) {
	svc, _ := newTestService(t)
	existing := core.Account{Description: "Checking"}
	existing.Touch(march)

	_, err := svc.CreateAccount(context.Background(), existing, decimal.Zero, march)
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDeleteAccount_BlockedByTransactions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	acc, err := svc.CreateAccount(ctx, core.Account{Description: "Checking", OnBudget: true}, decimal.NewFromInt(10), march)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	if err := svc.DeleteAccount(ctx, acc.ID); !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestUpdateAccount_RenamesPayeeAndDebtEnvelope(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	acc, err := svc.CreateAccount(ctx, core.Account{Description: "Card", OnBudget: true}, decimal.Zero, march)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	acc.Description = "Visa"
	if _, err := svc.UpdateAccount(ctx, acc); err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}

	payees, err := svc.GetPayees(ctx, core.FilterAll, "visa")
	if err != nil {
		t.Fatalf("GetPayees: %v", err)
	}
	if len(payees) != 1 || !payees[0].IsAccount {
		t.Errorf("expected the renamed account payee, got %+v", payees)
	}
	if got := budgetFor(t, svc, acc.ID).Envelope.Description; got != "Visa" {
		t.Errorf("debt envelope description = %q, want Visa", got)
	}
}

func TestReconcileAccount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	acc, err := svc.CreateAccount(ctx, core.Account{Description: "Checking", OnBudget: true}, decimal.NewFromInt(200), march)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	groceries := mustEnvelope(t, svc, "Living", "Groceries")
	shop, err := svc.SavePayee(ctx, core.Payee{Description: "Shop"})
	if err != nil {
		t.Fatalf("SavePayee: %v", err)
	}
	if _, err := svc.SaveTransaction(ctx, core.Transaction{
		Amount:      decimal.NewFromInt(-50),
		Account:     acc,
		Payee:       shop,
		Envelope:    groceries,
		ServiceDate: march.AddDate(0, 0, 2),
		Posted:      true,
	}); err != nil {
		t.Fatalf("SaveTransaction: %v", err)
	}

	// only the opening balance is posted by the statement date
	if _, err := svc.ReconcileAccount(ctx, acc.ID, march, decimal.NewFromInt(150)); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	got, err := svc.ReconcileAccount(ctx, acc.ID, march.AddDate(0, 0, 5), decimal.NewFromInt(150))
	if err != nil {
		t.Fatalf("ReconcileAccount: %v", err)
	}
	if !got.PostedBalance.Equal(decimal.NewFromInt(150)) {
		t.Errorf("PostedBalance = %s, want 150", got.PostedBalance)
	}

	txs, err := svc.GetTransactions(ctx, TransactionQuery{AccountID: acc.ID, Intent: core.FilterAll})
	if err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}
	for _, tx := range txs {
		if !tx.IsReconciled() {
			t.Errorf("transaction %s not reconciled", tx.ID)
		}
	}
}

func TestSplitTransaction_SaveAndDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	acc, err := svc.CreateAccount(ctx, core.Account{Description: "Checking", OnBudget: true}, decimal.Zero, march)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	food := mustEnvelope(t, svc, "Living", "Food")
	home := mustEnvelope(t, svc, "Living", "Household")
	shop, err := svc.SavePayee(ctx, core.Payee{Description: "Market"})
	if err != nil {
		t.Fatalf("SavePayee: %v", err)
	}

	member := func(env core.Envelope, amount int64) core.Transaction {
		return core.Transaction{
			Amount:      decimal.NewFromInt(amount),
			Account:     acc,
			Payee:       shop,
			Envelope:    env,
			ServiceDate: march,
		}
	}

	saved, err := svc.SaveSplitTransaction(ctx, []core.Transaction{member(food, -30), member(home, -20)})
	if err != nil {
		t.Fatalf("SaveSplitTransaction: %v", err)
	}
	if len(saved) != 2 || saved[0].SplitID == uuid.Nil || saved[0].SplitID != saved[1].SplitID {
		t.Fatalf("members should share a split id: %+v", saved)
	}

	listed, err := svc.GetTransactions(ctx, TransactionQuery{EnvelopeID: uuid.Nil, Text: "market"})
	if err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}
	if len(listed) != 1 || !listed[0].Amount.Equal(decimal.NewFromInt(-50)) {
		t.Errorf("expected one combined row of -50, got %+v", listed)
	}

	if err := svc.DeleteTransaction(ctx, saved[0].ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	remaining, err := svc.GetTransactions(ctx, TransactionQuery{Text: "market"})
	if err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}
	if len(remaining) != 1 || remaining[0].IsSplit() {
		t.Errorf("the last member should be a plain transaction, got %+v", remaining)
	}

	if err := svc.DeleteTransaction(ctx, saved[0].ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("deleting twice should be not found, got %v", err)
	}
}

func TestSaveSplitTransaction_NeedsTwoMembers(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.SaveSplitTransaction(context.Background(), []core.Transaction{{}})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestSaveTransaction_UnknownReferences(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.SaveTransaction(context.Background(), core.Transaction{
		Amount:      decimal.NewFromInt(-1),
		Account:     core.Account{Entity: core.Entity{ID: uuid.New()}},
		Payee:       core.Payee{Entity: core.Entity{ID: uuid.New()}},
		Envelope:    core.Envelope{Entity: core.Entity{ID: uuid.New()}},
		ServiceDate: march,
	})
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Messages) != 3 {
		t.Errorf("expected three messages, got %v", verr.Messages)
	}
}

func TestEnvelopeProtection(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	acc, err := svc.CreateAccount(ctx, core.Account{Description: "Card", OnBudget: true}, decimal.Zero, march)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	for name, id := range map[string]uuid.UUID{
		"income":  core.IncomeEnvelopeID,
		"buffer":  core.BufferEnvelopeID,
		"ignored": core.IgnoredEnvelopeID,
		"debt":    acc.ID,
	} {
		t.Run(name, func(t *testing.T) {
			if err := svc.DeleteEnvelope(ctx, id); !errors.Is(err, core.ErrValidation) {
				t.Errorf("DeleteEnvelope: expected validation error, got %v", err)
			}
			if err := svc.SetEnvelopeHidden(ctx, id, true); !errors.Is(err, core.ErrValidation) {
				t.Errorf("SetEnvelopeHidden: expected validation error, got %v", err)
			}
		})
	}
}

func TestHiddenEnvelopeFoldsIntoGenericLine(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	old := mustEnvelope(t, svc, "Misc", "Old")
	mustBudget(t, svc, old, "40")

	if err := svc.SetEnvelopeHidden(ctx, old.ID, true); err != nil {
		t.Fatalf("SetEnvelopeHidden: %v", err)
	}

	standard, err := svc.GetBudgets(ctx, march, core.FilterStandard)
	if err != nil {
		t.Fatalf("GetBudgets: %v", err)
	}
	if _, ok := findBudget(standard, old.ID); ok {
		t.Error("hidden envelope should not be listed in the standard view")
	}

	report, err := svc.GetBudgets(ctx, march, core.FilterReport)
	if err != nil {
		t.Fatalf("GetBudgets: %v", err)
	}
	hidden, ok := findBudget(report, core.GenericHiddenEnvelopeID)
	if !ok {
		t.Fatal("report view should include the generic hidden line")
	}
	if !hidden.Remaining.Equal(decimal.NewFromInt(40)) {
		t.Errorf("generic hidden Remaining = %s, want 40", hidden.Remaining)
	}
}

func TestDeleteEnvelopeGroup(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	e := mustEnvelope(t, svc, "Travel", "Flights")

	if err := svc.DeleteEnvelopeGroup(ctx, e.Group.ID); !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected conflict while envelopes remain, got %v", err)
	}
	if err := svc.DeleteEnvelopeGroup(ctx, core.IncomeGroupID); !errors.Is(err, core.ErrValidation) && !errors.Is(err, core.ErrNotFound) {
		t.Errorf("built-in group must not be deletable, got %v", err)
	}
	if err := svc.DeleteEnvelope(ctx, e.ID); err != nil {
		t.Fatalf("DeleteEnvelope: %v", err)
	}
	if err := svc.DeleteEnvelopeGroup(ctx, e.Group.ID); err != nil {
		t.Errorf("DeleteEnvelopeGroup: %v", err)
	}
}

func TestDeletePayee(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, err := svc.SavePayee(ctx, core.Payee{Description: "Cafe"})
	if err != nil {
		t.Fatalf("SavePayee: %v", err)
	}
	if err := svc.DeletePayee(ctx, p.ID); err != nil {
		t.Fatalf("DeletePayee: %v", err)
	}
	if err := svc.DeletePayee(ctx, p.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestPopulateMonth_CacheInvalidatedOnWrite(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	e := mustEnvelope(t, svc, "Living", "Groceries")

	before, err := svc.GetSchedule(ctx, march)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	mustBudget(t, svc, e, "25")
	after, err := svc.GetSchedule(ctx, march)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if !after.Budgeted.Sub(before.Budgeted).Equal(decimal.NewFromInt(25)) {
		t.Errorf("Budgeted moved from %s to %s, want +25", before.Budgeted, after.Budgeted)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	svc, pub := newTestService(t)
	pub.err = errors.New("broker down")

	if _, err := svc.SaveEnvelopeGroup(context.Background(), core.EnvelopeGroup{Description: "Bills"}); err != nil {
		t.Fatalf("write should succeed when publishing fails: %v", err)
	}
	if len(pub.kinds()) != 1 {
		t.Errorf("expected one publish attempt, got %d", len(pub.kinds()))
	}
}

func TestNilPublisherAndCache(t *testing.T) {
	svc := NewLedgerService(memory.New(), nil, nil)
	if _, err := svc.SaveEnvelopeGroup(context.Background(), core.EnvelopeGroup{Description: "Bills"}); err != nil {
		t.Fatalf("SaveEnvelopeGroup: %v", err)
	}
	if _, err := svc.PopulateMonth(context.Background(), march); err != nil {
		t.Fatalf("PopulateMonth: %v", err)
	}
}

func TestClose(t *testing.T) {
	svc, pub := newTestService(t)
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !pub.closed {
		t.Error("publisher should be closed")
	}
}

type fakePlanReader struct {
	lines []sheets.PlanLine
	err   error
}

func (r fakePlanReader) ReadBudgetPlan(_ context.Context, _, _ int) ([]sheets.PlanLine, error) {
	return r.lines, r.err
}

func TestImportPlan(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	rent := mustEnvelope(t, svc, "Home", "Rent")

	saved, skipped, err := svc.ImportPlan(ctx, march, fakePlanReader{lines: []sheets.PlanLine{
		{Group: " home ", Envelope: "RENT", Amount: decimal.NewFromInt(900)},
		{Group: "Home", Envelope: "Pool", Amount: decimal.NewFromInt(10)},
	}})
	if err != nil {
		t.Fatalf("ImportPlan: %v", err)
	}
	if saved != 1 {
		t.Errorf("saved = %d, want 1", saved)
	}
	if len(skipped) != 1 || skipped[0] != "Home: Pool" {
		t.Errorf("skipped = %v, want [Home: Pool]", skipped)
	}
	if got := budgetFor(t, svc, rent.ID).AmountOrZero(); !got.Equal(decimal.NewFromInt(900)) {
		t.Errorf("Rent amount = %s, want 900", got)
	}
}

func TestImportPlan_ReaderError(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.ImportPlan(context.Background(), march, fakePlanReader{err: errors.New("quota")})
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestTransferBudget_KeepsStoredOverspendFlag(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	travel := mustEnvelope(t, svc, "Leisure", "Travel")
	food := mustEnvelope(t, svc, "Living", "Food")

	travel.IgnoreOverspend = true
	travel, err := svc.SaveEnvelope(ctx, travel)
	if err != nil {
		t.Fatalf("SaveEnvelope: %v", err)
	}
	mustBudget(t, svc, travel, "100")

	if err := svc.TransferBudget(ctx, march, travel.ID, food.ID, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("TransferBudget: %v", err)
	}
	travel.IgnoreOverspend = false
	if _, err := svc.SaveEnvelope(ctx, travel); err != nil {
		t.Fatalf("SaveEnvelope: %v", err)
	}

	stored, err := svc.store.BudgetsForSchedule(ctx, core.NewSchedule(march).ID)
	if err != nil {
		t.Fatalf("BudgetsForSchedule: %v", err)
	}
	row, ok := findBudget(stored, travel.ID)
	if !ok {
		t.Fatal("travel budget was not stored")
	}
	if row.IgnoreOverspend {
		t.Error("stored budget inherited the envelope's overspend flag")
	}
	if !row.AmountOrZero().Equal(decimal.NewFromInt(50)) {
		t.Errorf("stored Amount = %s, want 50", row.AmountOrZero())
	}
	if budgetFor(t, svc, travel.ID).IgnoreOverspend {
		t.Error("budget still ignores overspend after the envelope flag was cleared")
	}
}

func TestGetTransactions_AccountListsIncomingTransfers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	checking, err := svc.CreateAccount(ctx, core.Account{Description: "Checking", OnBudget: true}, decimal.NewFromInt(500), march)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	loan, err := svc.CreateAccount(ctx, core.Account{Description: "Loan"}, decimal.NewFromInt(-1000), march)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	repayments := mustEnvelope(t, svc, "Bills", "Loan repayment")

	transfer, err := svc.SaveTransaction(ctx, core.Transaction{
		Amount:      decimal.NewFromInt(-100),
		Account:     checking,
		Payee:       core.PayeeFor(loan),
		Envelope:    repayments,
		ServiceDate: march.AddDate(0, 0, 1),
	})
	if err != nil {
		t.Fatalf("SaveTransaction: %v", err)
	}

	txs, err := svc.GetTransactions(ctx, TransactionQuery{AccountID: loan.ID, Intent: core.FilterAll})
	if err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("loan lists %d transactions, want the opening balance and the transfer", len(txs))
	}
	found := false
	for _, tx := range txs {
		found = found || tx.ID == transfer.ID
	}
	if !found {
		t.Errorf("incoming transfer %s missing from the loan listing", transfer.ID)
	}

	accounts, err := svc.GetAccounts(ctx, march, core.FilterAll)
	if err != nil {
		t.Fatalf("GetAccounts: %v", err)
	}
	for _, a := range accounts {
		if a.ID == loan.ID && !a.Balance.Equal(decimal.NewFromInt(-900)) {
			t.Errorf("loan Balance = %s, want -900", a.Balance)
		}
	}
}
