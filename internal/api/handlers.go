/**
 * @description
 * This file contains the HTTP handlers for the token-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the
 * appropriate methods on the lifecycle service, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer; no lifecycle invariant lives here.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/transfa/token-service/internal/app"
	"github.com/transfa/token-service/internal/domain"
	"github.com/transfa/token-service/internal/store"
)

// TokenHandlers holds the application service that handlers will use.
type TokenHandlers struct {
	service *app.Service
}

// NewTokenHandlers creates a new instance of TokenHandlers.
func NewTokenHandlers(service *app.Service) *TokenHandlers {
	return &TokenHandlers{service: service}
}

// infoResponse mirrors the structured info result, with an explicit found
// flag so callers can branch without inspecting the status code. Balance and
// tokens are always present on a found account; zero and empty are real
// values, not absences.
type infoResponse struct {
	Found         bool           `json:"found"`
	AccountNumber string         `json:"account_number,omitempty"`
	Balance       int64          `json:"balance"`
	Tokens        []domain.Token `json:"tokens"`
}

// GenerateHandler handles payment capture and token mint requests.
func (h *TokenHandlers) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.AccountNumber = strings.TrimSpace(req.AccountNumber)
	if req.AccountNumber == "" {
		h.writeError(w, http.StatusBadRequest, "account_number is required")
		return
	}

	result, err := h.service.Generate(r.Context(), req.AccountNumber, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidAmount):
			h.writeError(w, http.StatusBadRequest, "amount must be positive")
		case errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, store.ErrMintConflict):
			h.writeError(w, http.StatusConflict, "Token mint conflict, please retry")
		default:
			log.Printf("level=error component=api endpoint=generate err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Failed to process payment")
		}
		return
	}

	status := http.StatusCreated
	if result.Status != domain.PaymentStatusCompleted {
		status = http.StatusPaymentRequired
	}
	h.writeJSON(w, status, result)
}

// ValidateHandler handles read-only token validity checks.
func (h *TokenHandlers) ValidateHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTokenRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.Validate(r.Context(), req.AccountNumber, req.Token)
	if err != nil {
		log.Printf("level=error component=api endpoint=validate err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to validate token")
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// UseHandler handles token consumption requests.
func (h *TokenHandlers) UseHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTokenRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.Use(r.Context(), req.AccountNumber, req.Token)
	if err != nil {
		if errors.Is(err, app.ErrRateLimited) {
			h.writeError(w, http.StatusTooManyRequests, "Too many redemption attempts, slow down")
			return
		}
		log.Printf("level=error component=api endpoint=use err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to use token")
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// InfoHandler returns the balance and token history for one account.
func (h *TokenHandlers) InfoHandler(w http.ResponseWriter, r *http.Request) {
	accountNumber := strings.TrimSpace(chi.URLParam(r, "accountNumber"))
	if accountNumber == "" {
		h.writeError(w, http.StatusBadRequest, "account number is required")
		return
	}

	info, err := h.service.Info(r.Context(), accountNumber)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			h.writeJSON(w, http.StatusNotFound, infoResponse{Found: false, Tokens: []domain.Token{}})
			return
		}
		log.Printf("level=error component=api endpoint=info err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to load account info")
		return
	}
	tokens := info.Tokens
	if tokens == nil {
		tokens = []domain.Token{}
	}
	h.writeJSON(w, http.StatusOK, infoResponse{
		Found:         true,
		AccountNumber: info.AccountNumber,
		Balance:       info.Balance,
		Tokens:        tokens,
	})
}

// CreateAccountHandler provisions a new prepaid account.
func (h *TokenHandlers) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.AccountNumber = strings.TrimSpace(req.AccountNumber)
	if req.AccountNumber == "" {
		h.writeError(w, http.StatusBadRequest, "account_number is required")
		return
	}

	err := h.service.CreateAccount(r.Context(), req.AccountNumber, req.InitialBalance)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAccountExists):
			h.writeError(w, http.StatusConflict, "Account already exists")
		case errors.Is(err, app.ErrInvalidAmount):
			h.writeError(w, http.StatusBadRequest, "initial_balance must not be negative")
		default:
			log.Printf("level=error component=api endpoint=create_account err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Failed to create account")
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"account_number": req.AccountNumber})
}

func (h *TokenHandlers) decodeTokenRequest(w http.ResponseWriter, r *http.Request) (domain.TokenRequest, bool) {
	var req domain.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	req.AccountNumber = strings.TrimSpace(req.AccountNumber)
	req.Token = strings.TrimSpace(req.Token)
	if req.AccountNumber == "" || req.Token == "" {
		h.writeError(w, http.StatusBadRequest, "account_number and token are required")
		return req, false
	}
	return req, true
}

func (h *TokenHandlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func (h *TokenHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
