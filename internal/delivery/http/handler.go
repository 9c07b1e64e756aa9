package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evently-hq/evently/internal/service"
	"github.com/evently-hq/evently/pkg/logger"
	"github.com/evently-hq/evently/pkg/paystack"
)

// userIDHeader carries the authenticated user's id, injected by the API
// gateway in front of this service.
const userIDHeader = "X-User-ID"

type HTTPHandler struct {
	reservationService    service.ReservationService
	credentialService     service.CredentialService
	redemptionService     service.RedemptionService
	ticketService         service.TicketService
	reconciliationService service.ReconciliationService
	gateway               *paystack.Client
	logger                logger.Logger
	validator             *validator.Validate
}

func NewHTTPHandler(
	reservationService service.ReservationService,
	credentialService service.CredentialService,
	redemptionService service.RedemptionService,
	ticketService service.TicketService,
	reconciliationService service.ReconciliationService,
	gateway *paystack.Client,
	logger logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		reservationService:    reservationService,
		credentialService:     credentialService,
		redemptionService:     redemptionService,
		ticketService:         ticketService,
		reconciliationService: reconciliationService,
		gateway:               gateway,
		logger:                logger,
		validator:             validator.New(),
	}
}

func (h *HTTPHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/purchases", func(r chi.Router) {
			r.Post("/", h.ReservePurchase)
			r.Get("/", h.ListPurchases)
			r.Post("/paystack-webhook", h.PaystackWebhook)
		})

		r.Post("/scan", h.Scan)

		r.Route("/events/{eventId}/tiers", func(r chi.Router) {
			r.Post("/", h.CreateTiers)
			r.Get("/", h.ListTiers)
		})

		r.Route("/tiers/{tierId}", func(r chi.Router) {
			r.Patch("/capacity", h.AdjustCapacity)
			r.Patch("/price", h.ChangePrice)
			r.Delete("/", h.DeleteTier)
		})

		r.Route("/reconciliations", func(r chi.Router) {
			r.Get("/", h.ListReconciliations)
			r.Post("/{recordId}/resolve", h.ResolveReconciliation)
		})
	})

	return r
}

// HealthCheck handles health check requests
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "ticketing-service",
		"version": "1.0.0",
	}
	h.respondJSON(w, http.StatusOK, response)
}

// ReservePurchase handles checkout initiation requests
func (h *HTTPHandler) ReservePurchase(w http.ResponseWriter, r *http.Request) {
	buyerID := r.Header.Get(userIDHeader)
	if buyerID == "" {
		h.respondError(w, http.StatusUnauthorized, "Missing user identity", nil)
		return
	}

	var req ReservePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	out, err := h.reservationService.Reserve(r.Context(), service.ReserveInput{
		TierID:        req.TierID,
		BuyerID:       buyerID,
		BuyerEmail:    req.BuyerEmail,
		BuyerName:     req.BuyerName,
		Quantity:      req.Quantity,
		AttendeeNames: req.AttendeeNames,
	})
	if err != nil {
		h.respondServiceError(w, r, "Failed to reserve tickets", err)
		return
	}

	h.respondJSON(w, http.StatusCreated, ReservePurchaseResponse{
		IntentID:         out.Intent.ID,
		GatewayReference: out.GatewayReference,
		PaymentURL:       out.PaymentURL,
	})
}

// ListPurchases handles purchase history requests for the calling buyer
func (h *HTTPHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	buyerID := r.Header.Get(userIDHeader)
	if buyerID == "" {
		h.respondError(w, http.StatusUnauthorized, "Missing user identity", nil)
		return
	}

	intents, err := h.reservationService.ListBuyerIntents(r.Context(), buyerID)
	if err != nil {
		h.respondServiceError(w, r, "Failed to list purchases", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"purchases": intents})
}

// PaystackWebhook handles payment confirmation callbacks. The signature is
// checked against the raw body before any parsing; once it verifies, the
// response is 200 regardless of processing outcome so the gateway does not
// retry a payment we have already flagged for reconciliation.
func (h *HTTPHandler) PaystackWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	signature := r.Header.Get("X-Paystack-Signature")
	if !h.gateway.VerifySignature(body, signature) {
		h.respondError(w, http.StatusForbidden, "Invalid webhook signature", nil)
		return
	}

	event, err := paystack.ParseWebhook(body)
	if err != nil {
		h.logger.Errorf(r.Context(), "Failed to parse webhook payload: %v", err)
		h.respondJSON(w, http.StatusOK, map[string]interface{}{"received": true})
		return
	}

	if event.Event != paystack.EventChargeSuccess {
		h.respondJSON(w, http.StatusOK, map[string]interface{}{"received": true})
		return
	}

	if _, err := h.reservationService.Confirm(r.Context(), event.Data.Reference, event.Data.PaidAt); err != nil {
		h.logger.Errorf(r.Context(), "Failed to confirm payment %s: %v", event.Data.Reference, err)
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"received": true})
}

// Scan handles gate redemption requests, accepting either a signed QR token
// or a bare credential id
func (h *HTTPHandler) Scan(w http.ResponseWriter, r *http.Request) {
	scannerID := r.Header.Get(userIDHeader)
	if scannerID == "" {
		h.respondError(w, http.StatusUnauthorized, "Missing user identity", nil)
		return
	}

	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	credentialID := req.CredentialID
	if req.Token != "" {
		claims, err := h.credentialService.ParseScanToken(req.Token)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid scan token", err)
			return
		}
		credentialID = claims.CredentialID
	}

	if credentialID == "" {
		h.respondError(w, http.StatusBadRequest, "Either token or credential_id is required", nil)
		return
	}

	cred, err := h.redemptionService.Scan(r.Context(), service.ScanInput{
		ScannerID:    scannerID,
		EventID:      req.EventID,
		CredentialID: credentialID,
	})
	if err != nil {
		h.respondServiceError(w, r, "Failed to scan credential", err)
		return
	}

	h.respondJSON(w, http.StatusOK, ScanResponse{
		CredentialID: cred.ID,
		AttendeeName: cred.AttendeeName,
		ScannedAt:    cred.ScannedAt,
	})
}

// CreateTiers handles tier creation for an event
func (h *HTTPHandler) CreateTiers(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		h.respondError(w, http.StatusUnauthorized, "Missing user identity", nil)
		return
	}

	eventID := chi.URLParam(r, "eventId")

	var req CreateTiersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	inputs := make([]service.TierInput, 0, len(req.Tiers))
	for _, t := range req.Tiers {
		inputs = append(inputs, service.TierInput{
			Name:                 t.Name,
			Description:          t.Description,
			Price:                t.Price,
			TotalCapacity:        t.TotalCapacity,
			RequiresAttendeeName: t.RequiresAttendeeName,
		})
	}

	tiers, err := h.ticketService.CreateTiers(r.Context(), userID, eventID, inputs)
	if err != nil {
		h.respondServiceError(w, r, "Failed to create tiers", err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{"tiers": tiers})
}

// ListTiers handles tier listing for an event
func (h *HTTPHandler) ListTiers(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	tiers, err := h.ticketService.ListEventTiers(r.Context(), eventID)
	if err != nil {
		h.respondServiceError(w, r, "Failed to list tiers", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"tiers": tiers})
}

// AdjustCapacity handles tier capacity changes
func (h *HTTPHandler) AdjustCapacity(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		h.respondError(w, http.StatusUnauthorized, "Missing user identity", nil)
		return
	}

	tierID := chi.URLParam(r, "tierId")

	var req AdjustCapacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	tier, err := h.ticketService.AdjustCapacity(r.Context(), userID, tierID, req.TotalCapacity)
	if err != nil {
		h.respondServiceError(w, r, "Failed to adjust capacity", err)
		return
	}

	h.respondJSON(w, http.StatusOK, tier)
}

// ChangePrice handles tier price changes
func (h *HTTPHandler) ChangePrice(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		h.respondError(w, http.StatusUnauthorized, "Missing user identity", nil)
		return
	}

	tierID := chi.URLParam(r, "tierId")

	var req ChangePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tier, err := h.ticketService.ChangePrice(r.Context(), userID, tierID, req.Price)
	if err != nil {
		h.respondServiceError(w, r, "Failed to change price", err)
		return
	}

	h.respondJSON(w, http.StatusOK, tier)
}

// DeleteTier handles tier deletion
func (h *HTTPHandler) DeleteTier(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		h.respondError(w, http.StatusUnauthorized, "Missing user identity", nil)
		return
	}

	tierID := chi.URLParam(r, "tierId")

	if err := h.ticketService.DeleteTier(r.Context(), userID, tierID); err != nil {
		h.respondServiceError(w, r, "Failed to delete tier", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": tierID})
}

// ListReconciliations handles listing of unresolved flagged payments
func (h *HTTPHandler) ListReconciliations(w http.ResponseWriter, r *http.Request) {
	records, err := h.reconciliationService.ListOpen(r.Context())
	if err != nil {
		h.respondServiceError(w, r, "Failed to list reconciliation records", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

// ResolveReconciliation marks a flagged payment as refunded
func (h *HTTPHandler) ResolveReconciliation(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordId")

	if err := h.reconciliationService.Resolve(r.Context(), recordID); err != nil {
		h.respondServiceError(w, r, "Failed to resolve reconciliation record", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"resolved": recordID})
}

// Helper functions

func (h *HTTPHandler) respondServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		h.respondError(w, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, service.ErrTierNotFound),
		errors.Is(err, service.ErrIntentNotFound),
		errors.Is(err, service.ErrCredentialNotFound),
		errors.Is(err, service.ErrReconciliationNotFound):
		h.respondError(w, http.StatusNotFound, err.Error(), err)
	case errors.Is(err, service.ErrInsufficientStock):
		h.respondError(w, http.StatusConflict, err.Error(), err)
	case errors.Is(err, service.ErrAlreadyScanned),
		errors.Is(err, service.ErrTierMismatch):
		h.respondError(w, http.StatusConflict, err.Error(), err)
	case errors.Is(err, service.ErrUnauthorized):
		h.respondError(w, http.StatusForbidden, err.Error(), err)
	case errors.Is(err, service.ErrGatewayUnavailable):
		h.respondError(w, http.StatusBadGateway, "Payment gateway unavailable", err)
	default:
		h.logger.Errorf(r.Context(), "%s: %v", message, err)
		h.respondError(w, http.StatusInternalServerError, message, err)
	}
}

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Errorf(context.Background(), "Failed to encode JSON response: %v", err)
	}
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	response := map[string]interface{}{
		"error": message,
		"code":  statusCode,
	}

	if err != nil {
		h.logger.Debugf(context.Background(), "Error response: %s: %v", message, err)
	}

	h.respondJSON(w, statusCode, response)
}
