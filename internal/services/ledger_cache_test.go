package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"envelopes/internal/cache"
	"envelopes/internal/core"
	"envelopes/internal/ledger"
	"envelopes/internal/ledger/memory"
)

// hookStore runs beforeTransactions once, while a month is being populated.
type hookStore struct {
	ledger.Store
	once               sync.Once
	beforeTransactions func()
	scheduleErr        error
}

func (s *hookStore) Transactions(ctx context.Context) ([]core.Transaction, error) {
	if s.beforeTransactions != nil {
		s.once.Do(s.beforeTransactions)
	}
	return s.Store.Transactions(ctx)
}

func (s *hookStore) Schedule(ctx context.Context, id uuid.UUID) (core.BudgetSchedule, error) {
	if s.scheduleErr != nil {
		return core.BudgetSchedule{}, s.scheduleErr
	}
	return s.Store.Schedule(ctx, id)
}

func newHookedService(store *hookStore) *LedgerService {
	svc := NewLedgerService(store, cache.NewLRUCache[core.PeriodReport](16, time.Minute), nil)
	svc.now = func() time.Time { return march }
	return svc
}

func TestPopulateMonth_WriteDuringPopulateIsNotCached(t *testing.T) {
	store := &hookStore{Store: memory.New()}
	svc := newHookedService(store)
	ctx := context.Background()
	groceries := mustEnvelope(t, svc, "Living", "Groceries")

	var writeErr error
	store.beforeTransactions = func() {
		_, writeErr = svc.SaveBudget(ctx, core.Budget{
			Envelope: groceries,
			Schedule: core.BudgetSchedule{BeginDate: march},
			Amount:   decimal.NewNullDecimal(decimal.NewFromInt(25)),
		})
	}

	if _, err := svc.GetSchedule(ctx, march); err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if writeErr != nil {
		t.Fatalf("SaveBudget: %v", writeErr)
	}

	after, err := svc.GetSchedule(ctx, march)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if !after.Budgeted.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Budgeted = %s, want 25", after.Budgeted)
	}
}

func TestPopulateMonth_ScheduleError(t *testing.T) {
	storeErr := errors.New("sqlite: disk I/O error")
	svc := newHookedService(&hookStore{Store: memory.New(), scheduleErr: storeErr})

	_, err := svc.PopulateMonth(context.Background(), march)
	if !errors.Is(err, storeErr) {
		t.Errorf("expected the store error, got %v", err)
	}
}
