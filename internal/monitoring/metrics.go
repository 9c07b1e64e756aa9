package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evently_reservations_total",
			Help: "Purchase intents created, by result",
		},
		[]string{"result"},
	)

	Confirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evently_confirmations_total",
			Help: "Payment confirmations processed, by result",
		},
		[]string{"result"},
	)

	Scans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evently_scans_total",
			Help: "Credential scans at the gate, by result",
		},
		[]string{"result"},
	)

	ReconciliationsFlagged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evently_reconciliations_flagged_total",
			Help: "Captured payments flagged for manual refund",
		},
	)

	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evently_ticket_deliveries_total",
			Help: "Ticket mail deliveries, by result",
		},
		[]string{"result"},
	)
)

const (
	ResultOK                = "ok"
	ResultError             = "error"
	ResultNotFound          = "not_found"
	ResultInsufficientStock = "insufficient_stock"
	ResultValidation        = "validation"
	ResultReplayed          = "replayed"
	ResultAlreadyScanned    = "already_scanned"
	ResultTierMismatch      = "tier_mismatch"
	ResultUnauthorized      = "unauthorized"
)
