package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/models"
)

func newReconcilerFixture(t *testing.T) (*fixture, *Reconciler, *models.Order) {
	t.Helper()
	drill := product(50)
	f := newFixture(drill)
	order := createOrder(t, f, drill, 2, models.ZoneTbilisi)
	return f, NewReconciler(f.service, f.notifier, zap.NewNop()), order
}

func storedStatus(t *testing.T, f *fixture, id primitive.ObjectID) models.OrderStatus {
	t.Helper()
	order, err := f.repo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	return order.Status
}

func TestCallbackApprovedMarksPaid(t *testing.T) {
	f, r, order := newReconcilerFixture(t)

	outcome, err := r.HandleCallback(context.Background(), Callback{OrderRef: order.ID.Hex(), Status: "approved", AmountMinor: 11000})
	if err != nil {
		t.Fatalf("HandleCallback returned error: %v", err)
	}
	if outcome != OutcomePaid {
		t.Fatalf("expected paid outcome, got %s", outcome)
	}
	if got := storedStatus(t, f, order.ID); got != models.StatusPaid {
		t.Fatalf("expected paid, got %s", got)
	}
	stored, _ := f.repo.FindByID(context.Background(), order.ID)
	if len(stored.StatusHistory) != 1 || stored.StatusHistory[0].Source != models.SourceGateway {
		t.Fatalf("expected one gateway history entry, got %+v", stored.StatusHistory)
	}
	if f.notifier.paidCount() != 1 {
		t.Fatalf("expected one paid notification, got %d", f.notifier.paidCount())
	}
	if f.notifier.changeCount() != 0 {
		t.Fatal("expected no status-changed notification on the approval edge")
	}
}

func TestCallbackReplayNotifiesOnce(t *testing.T) {
	f, r, order := newReconcilerFixture(t)
	cb := Callback{OrderRef: order.ID.Hex(), Status: "approved", AmountMinor: 11000}

	for i := 0; i < 3; i++ {
		if _, err := r.HandleCallback(context.Background(), cb); err != nil {
			t.Fatalf("delivery %d returned error: %v", i, err)
		}
	}

	if f.notifier.paidCount() != 1 {
		t.Fatalf("expected exactly one paid notification, got %d", f.notifier.paidCount())
	}
	if f.repo.updates != 1 {
		t.Fatalf("expected one status write, got %d", f.repo.updates)
	}
}

func TestCallbackConcurrentApprovalsHaveOneWinner(t *testing.T) {
	f, r, order := newReconcilerFixture(t)
	cb := Callback{OrderRef: order.UUID, Status: "approved", AmountMinor: 11000}

	var wg sync.WaitGroup
	outcomes := make(chan Outcome, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := r.HandleCallback(context.Background(), cb)
			if err != nil {
				t.Errorf("HandleCallback returned error: %v", err)
				return
			}
			outcomes <- outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	paid := 0
	for outcome := range outcomes {
		if outcome == OutcomePaid {
			paid++
		}
	}
	if paid != 1 {
		t.Fatalf("expected one winning callback, got %d", paid)
	}
	if f.notifier.paidCount() != 1 {
		t.Fatalf("expected one paid notification, got %d", f.notifier.paidCount())
	}
}

func TestCallbackAmountTamperFails(t *testing.T) {
	f, r, order := newReconcilerFixture(t)

	outcome, err := r.HandleCallback(context.Background(), Callback{OrderRef: order.ID.Hex(), Status: "approved", AmountMinor: 10000})
	if err != nil {
		t.Fatalf("HandleCallback returned error: %v", err)
	}
	if outcome != OutcomeAmountMismatch {
		t.Fatalf("expected amount mismatch, got %s", outcome)
	}
	if got := storedStatus(t, f, order.ID); got != models.StatusFailed {
		t.Fatalf("expected failed, got %s", got)
	}
	if f.notifier.paidCount() != 0 {
		t.Fatal("expected no paid notification")
	}
}

func TestCallbackDeclinedFails(t *testing.T) {
	f, r, order := newReconcilerFixture(t)

	outcome, err := r.HandleCallback(context.Background(), Callback{OrderRef: order.ID.Hex(), Status: "declined", AmountMinor: 11000})
	if err != nil {
		t.Fatalf("HandleCallback returned error: %v", err)
	}
	if outcome != OutcomeDeclined {
		t.Fatalf("expected declined, got %s", outcome)
	}
	if got := storedStatus(t, f, order.ID); got != models.StatusFailed {
		t.Fatalf("expected failed, got %s", got)
	}
}

func TestCallbackNeverRegressesPaidOrder(t *testing.T) {
	f, r, order := newReconcilerFixture(t)
	ctx := context.Background()

	if _, err := r.HandleCallback(ctx, Callback{OrderRef: order.ID.Hex(), Status: "approved", AmountMinor: 11000}); err != nil {
		t.Fatalf("approval returned error: %v", err)
	}
	late := []Callback{
		{OrderRef: order.ID.Hex(), Status: "declined", AmountMinor: 11000},
		{OrderRef: order.ID.Hex(), Status: "approved", AmountMinor: 1},
	}
	for _, cb := range late {
		outcome, err := r.HandleCallback(ctx, cb)
		if err != nil {
			t.Fatalf("late callback returned error: %v", err)
		}
		if outcome != OutcomeIgnored {
			t.Fatalf("expected ignored outcome, got %s", outcome)
		}
	}
	if got := storedStatus(t, f, order.ID); got != models.StatusPaid {
		t.Fatalf("expected paid to be kept, got %s", got)
	}
}

func TestCallbackApprovalAfterDeclineRetry(t *testing.T) {
	f, r, order := newReconcilerFixture(t)
	ctx := context.Background()

	if _, err := r.HandleCallback(ctx, Callback{OrderRef: order.ID.Hex(), Status: "declined"}); err != nil {
		t.Fatalf("decline returned error: %v", err)
	}
	outcome, err := r.HandleCallback(ctx, Callback{OrderRef: order.ID.Hex(), Status: "approved", AmountMinor: 11000})
	if err != nil {
		t.Fatalf("approval returned error: %v", err)
	}
	if outcome != OutcomePaid || storedStatus(t, f, order.ID) != models.StatusPaid {
		t.Fatalf("expected retried payment to mark order paid, got %s", outcome)
	}
}

func TestCallbackIgnoresCancelledOrder(t *testing.T) {
	f, r, order := newReconcilerFixture(t)
	ctx := context.Background()
	if _, err := f.service.TransitionStatus(ctx, order.ID.Hex(), models.StatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	outcome, err := r.HandleCallback(ctx, Callback{OrderRef: order.ID.Hex(), Status: "approved", AmountMinor: 11000})
	if err != nil {
		t.Fatalf("HandleCallback returned error: %v", err)
	}
	if outcome != OutcomeIgnored || storedStatus(t, f, order.ID) != models.StatusCancelled {
		t.Fatalf("expected cancelled order to be left alone, got %s", outcome)
	}
}

func TestCallbackUnknownOrder(t *testing.T) {
	_, r, _ := newReconcilerFixture(t)
	_, err := r.HandleCallback(context.Background(), Callback{OrderRef: primitive.NewObjectID().Hex(), Status: "approved"})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
