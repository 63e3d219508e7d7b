package metrics

import "github.com/prometheus/client_golang/prometheus"

// SettlementMetrics tracks money movement through the settlement engine.
type SettlementMetrics struct {
	ordersSettled  prometheus.Counter
	centsSettled   prometheus.Counter
	holdsReleased  prometheus.Counter
	payoutsCreated prometheus.Counter
	payoutsFailed  prometheus.Counter
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	ordersSettled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_orders_total",
		Help: "Orders settled into the financial ledger.",
	})
	centsSettled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_vendor_net_cents_total",
		Help: "Vendor net cents credited by settlement.",
	})
	holdsReleased := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_holds_released_total",
		Help: "Matured holds moved from pending to available.",
	})
	payoutsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payouts_created_total",
		Help: "Payout requests accepted and debited.",
	})
	payoutsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payouts_failed_total",
		Help: "Payouts transitioned to failed and refunded.",
	})
	reg.MustRegister(ordersSettled, centsSettled, holdsReleased, payoutsCreated, payoutsFailed)
	return &SettlementMetrics{
		ordersSettled:  ordersSettled,
		centsSettled:   centsSettled,
		holdsReleased:  holdsReleased,
		payoutsCreated: payoutsCreated,
		payoutsFailed:  payoutsFailed,
	}
}

// RecordSettlement counts one settled order and its vendor net.
func (m *SettlementMetrics) RecordSettlement(vendorNetCents int) {
	if m == nil || m.ordersSettled == nil {
		return
	}
	m.ordersSettled.Inc()
	if vendorNetCents > 0 {
		m.centsSettled.Add(float64(vendorNetCents))
	}
}

// RecordHoldRelease counts released settlements.
func (m *SettlementMetrics) RecordHoldRelease(count int) {
	if m == nil || m.holdsReleased == nil {
		return
	}
	m.holdsReleased.Add(float64(count))
}

// RecordPayoutCreated counts one accepted payout request.
func (m *SettlementMetrics) RecordPayoutCreated() {
	if m == nil || m.payoutsCreated == nil {
		return
	}
	m.payoutsCreated.Inc()
}

// RecordPayoutFailed counts one failed-and-refunded payout.
func (m *SettlementMetrics) RecordPayoutFailed() {
	if m == nil || m.payoutsFailed == nil {
		return
	}
	m.payoutsFailed.Inc()
}
