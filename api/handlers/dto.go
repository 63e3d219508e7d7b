package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/Mnabil10/fasket-backend/pkg/db/models"
	"github.com/Mnabil10/fasket-backend/pkg/enums"
)

type orderFinancialsResponse struct {
	ID                   uuid.UUID      `json:"id"`
	OrderID              uuid.UUID      `json:"orderId"`
	ProviderID           uuid.UUID      `json:"providerId"`
	Currency             enums.Currency `json:"currency"`
	SubtotalCents        int            `json:"subtotalCents"`
	DeliveryFeeCents     int            `json:"deliveryFeeCents"`
	ServiceFeeCents      int            `json:"serviceFeeCents"`
	DiscountCents        int            `json:"discountCents"`
	GatewayFeeCents      int            `json:"gatewayFeeCents"`
	CommissionCents      int            `json:"commissionCents"`
	VendorNetCents       int            `json:"vendorNetCents"`
	PlatformRevenueCents int            `json:"platformRevenueCents"`
	HoldUntil            *time.Time     `json:"holdUntil,omitempty"`
	ReleasedAt           *time.Time     `json:"releasedAt,omitempty"`
	SettledAt            time.Time      `json:"settledAt"`
}

func toOrderFinancialsResponse(f *models.OrderFinancials) orderFinancialsResponse {
	return orderFinancialsResponse{
		ID:                   f.ID,
		OrderID:              f.OrderID,
		ProviderID:           f.ProviderID,
		Currency:             f.Currency,
		SubtotalCents:        f.SubtotalCents,
		DeliveryFeeCents:     f.DeliveryFeeCents,
		ServiceFeeCents:      f.ServiceFeeCents,
		DiscountCents:        f.DiscountCents,
		GatewayFeeCents:      f.GatewayFeeCents,
		CommissionCents:      f.CommissionCents,
		VendorNetCents:       f.VendorNetCents,
		PlatformRevenueCents: f.PlatformRevenueCents,
		HoldUntil:            f.HoldUntil,
		ReleasedAt:           f.ReleasedAt,
		SettledAt:            f.SettledAt,
	}
}

type payoutResponse struct {
	ID            uuid.UUID          `json:"id"`
	ProviderID    uuid.UUID          `json:"providerId"`
	AmountCents   int                `json:"amountCents"`
	FeeCents      int                `json:"feeCents"`
	Currency      enums.Currency     `json:"currency"`
	Status        enums.PayoutStatus `json:"status"`
	ReferenceID   *string            `json:"referenceId,omitempty"`
	FailureReason *string            `json:"failureReason,omitempty"`
	ProcessedAt   *time.Time         `json:"processedAt,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
}

func toPayoutResponse(p *models.Payout) payoutResponse {
	return payoutResponse{
		ID:            p.ID,
		ProviderID:    p.ProviderID,
		AmountCents:   p.AmountCents,
		FeeCents:      p.FeeCents,
		Currency:      p.Currency,
		Status:        p.Status,
		ReferenceID:   p.ReferenceID,
		FailureReason: p.FailureReason,
		ProcessedAt:   p.ProcessedAt,
		CreatedAt:     p.CreatedAt,
	}
}

type balanceResponse struct {
	ProviderID              uuid.UUID  `json:"providerId"`
	AvailableCents          int        `json:"availableCents"`
	PendingCents            int        `json:"pendingCents"`
	LifetimeSalesCents      int        `json:"lifetimeSalesCents"`
	LifetimeCommissionCents int        `json:"lifetimeCommissionCents"`
	LifetimeEarningsCents   int        `json:"lifetimeEarningsCents"`
	LastSettlementAt        *time.Time `json:"lastSettlementAt,omitempty"`
	LastPayoutAt            *time.Time `json:"lastPayoutAt,omitempty"`
}

func toBalanceResponse(b *models.VendorBalance) balanceResponse {
	return balanceResponse{
		ProviderID:              b.ProviderID,
		AvailableCents:          b.AvailableCents,
		PendingCents:            b.PendingCents,
		LifetimeSalesCents:      b.LifetimeSalesCents,
		LifetimeCommissionCents: b.LifetimeCommissionCents,
		LifetimeEarningsCents:   b.LifetimeEarningsCents,
		LastSettlementAt:        b.LastSettlementAt,
		LastPayoutAt:            b.LastPayoutAt,
	}
}

type ledgerEntryResponse struct {
	ID          uuid.UUID             `json:"id"`
	ProviderID  uuid.UUID             `json:"providerId"`
	OrderID     *uuid.UUID            `json:"orderId,omitempty"`
	PayoutID    *uuid.UUID            `json:"payoutId,omitempty"`
	Type        enums.LedgerEntryType `json:"type"`
	AmountCents int                   `json:"amountCents"`
	Currency    enums.Currency        `json:"currency"`
	CreatedAt   time.Time             `json:"createdAt"`
}

func toLedgerEntryResponses(entries []models.LedgerEntry) []ledgerEntryResponse {
	out := make([]ledgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, ledgerEntryResponse{
			ID:          entry.ID,
			ProviderID:  entry.ProviderID,
			OrderID:     entry.OrderID,
			PayoutID:    entry.PayoutID,
			Type:        entry.Type,
			AmountCents: entry.AmountCents,
			Currency:    entry.Currency,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return out
}
