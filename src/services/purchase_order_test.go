package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"restaurant-inventory/src/models"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    models.PurchaseOrderStatus
		to      models.PurchaseOrderStatus
		allowed bool
	}{
		{models.POStatusDraft, models.POStatusPendingApproval, true},
		{models.POStatusDraft, models.POStatusApproved, false},
		{models.POStatusDraft, models.POStatusSent, false},
		{models.POStatusPendingApproval, models.POStatusApproved, true},
		{models.POStatusPendingApproval, models.POStatusDraft, true},
		{models.POStatusApproved, models.POStatusSent, true},
		{models.POStatusApproved, models.POStatusReceived, false},
		{models.POStatusSent, models.POStatusAcknowledged, true},
		{models.POStatusSent, models.POStatusPartialReceived, true},
		{models.POStatusSent, models.POStatusReceived, true},
		{models.POStatusAcknowledged, models.POStatusReceived, true},
		{models.POStatusPartialReceived, models.POStatusReceived, true},
		{models.POStatusPartialReceived, models.POStatusPartialReceived, true},
		{models.POStatusReceived, models.POStatusCompleted, true},
		{models.POStatusReceived, models.POStatusSent, false},
		{models.POStatusCompleted, models.POStatusReceived, false},
		{models.POStatusDisputed, models.POStatusReceived, true},
		{models.POStatusDisputed, models.POStatusSent, false},

		// Cancellation is open from every non-terminal state.
		{models.POStatusDraft, models.POStatusCancelled, true},
		{models.POStatusSent, models.POStatusCancelled, true},
		{models.POStatusReceived, models.POStatusCancelled, true},
		{models.POStatusCompleted, models.POStatusCancelled, false},
		{models.POStatusCancelled, models.POStatusCancelled, false},

		// Disputes only once the supplier side is in play.
		{models.POStatusSent, models.POStatusDisputed, true},
		{models.POStatusReceived, models.POStatusDisputed, true},
		{models.POStatusDraft, models.POStatusDisputed, false},
		{models.POStatusApproved, models.POStatusDisputed, false},
	}

	for _, tc := range cases {
		got := tc.from.CanTransitionTo(tc.to)
		assert.Equal(t, tc.allowed, got, "%s -> %s", tc.from, tc.to)
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, models.POStatusCompleted.IsTerminal())
	assert.True(t, models.POStatusCancelled.IsTerminal())
	assert.False(t, models.POStatusDraft.IsTerminal())
	assert.False(t, models.POStatusDisputed.IsTerminal())
}

func TestOrderStatusCanReceive(t *testing.T) {
	receivable := []models.PurchaseOrderStatus{
		models.POStatusApproved, models.POStatusSent, models.POStatusAcknowledged,
		models.POStatusPartialReceived, models.POStatusDisputed,
	}
	for _, s := range receivable {
		assert.True(t, s.CanReceive(), "%s", s)
	}

	blocked := []models.PurchaseOrderStatus{
		models.POStatusDraft, models.POStatusPendingApproval,
		models.POStatusReceived, models.POStatusCompleted, models.POStatusCancelled,
	}
	for _, s := range blocked {
		assert.False(t, s.CanReceive(), "%s", s)
	}
}

func TestDeriveLineStatus(t *testing.T) {
	line := &models.PurchaseOrderLine{Quantity: 10}
	assert.Equal(t, models.POLinePending, DeriveLineStatus(line))

	line.ReceivedQuantity = 4
	assert.Equal(t, models.POLinePartial, DeriveLineStatus(line))

	line.ReceivedQuantity = 10
	assert.Equal(t, models.POLineReceived, DeriveLineStatus(line))

	line.ReceivedQuantity = 12
	assert.Equal(t, models.POLineReceived, DeriveLineStatus(line))

	// Cancelled lines never come back through receipt.
	line.Status = models.POLineCancelled
	assert.Equal(t, models.POLineCancelled, DeriveLineStatus(line))
}

func TestDeriveReceivingStatus(t *testing.T) {
	lines := []models.PurchaseOrderLine{
		{Quantity: 10},
		{Quantity: 5},
	}
	assert.Equal(t, models.ReceivingNotReceived, DeriveReceivingStatus(lines))

	lines[0].ReceivedQuantity = 10
	assert.Equal(t, models.ReceivingPartial, DeriveReceivingStatus(lines))

	lines[1].ReceivedQuantity = 5
	assert.Equal(t, models.ReceivingComplete, DeriveReceivingStatus(lines))
}

func TestDeriveReceivingStatusIgnoresCancelledLines(t *testing.T) {
	lines := []models.PurchaseOrderLine{
		{Quantity: 10, ReceivedQuantity: 10},
		{Quantity: 5, Status: models.POLineCancelled},
	}
	assert.Equal(t, models.ReceivingComplete, DeriveReceivingStatus(lines))
}

func TestDerivePaymentStatus(t *testing.T) {
	now := time.Now()
	po := &models.PurchaseOrder{Total: 100}

	assert.Equal(t, models.PaymentUnpaid, DerivePaymentStatus(po, now))

	po.Payments = []models.PurchaseOrderPayment{{Amount: 40}}
	assert.Equal(t, models.PaymentPartial, DerivePaymentStatus(po, now))

	po.Payments = append(po.Payments, models.PurchaseOrderPayment{Amount: 60})
	assert.Equal(t, models.PaymentPaid, DerivePaymentStatus(po, now))
}

func TestDerivePaymentStatusOverdue(t *testing.T) {
	now := time.Now()
	due := now.AddDate(0, 0, -1)
	po := &models.PurchaseOrder{Total: 100, PaymentDueAt: &due}

	assert.Equal(t, models.PaymentOverdue, DerivePaymentStatus(po, now))

	po.Payments = []models.PurchaseOrderPayment{{Amount: 30}}
	assert.Equal(t, models.PaymentOverdue, DerivePaymentStatus(po, now))

	// Full payment clears the overdue state even past the due date.
	po.Payments = append(po.Payments, models.PurchaseOrderPayment{Amount: 70})
	assert.Equal(t, models.PaymentPaid, DerivePaymentStatus(po, now))
}
