package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/transfa/token-service/internal/app"
	"github.com/transfa/token-service/internal/domain"
	"github.com/transfa/token-service/internal/store"
)

// infoRepoStub serves the read-only info path; every other method panics via
// the embedded interface.
type infoRepoStub struct {
	store.Repository
	account *domain.Account
	tokens  []domain.Token
}

func (s *infoRepoStub) FindAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	if s.account == nil || s.account.AccountNumber != accountNumber {
		return nil, store.ErrAccountNotFound
	}
	copied := *s.account
	return &copied, nil
}

func (s *infoRepoStub) ListTokensByAccount(ctx context.Context, accountNumber string) ([]domain.Token, error) {
	return s.tokens, nil
}

func TestInfoHandlerEmitsZeroBalanceAndEmptyHistory(t *testing.T) {
	repo := &infoRepoStub{account: &domain.Account{AccountNumber: "ACC001", Balance: 0}}
	handlers := NewTokenHandlers(app.NewService(repo, nil, nil, 0))
	router := TokenRoutes(handlers, "")

	req := httptest.NewRequest(http.MethodGet, "/accounts/ACC001", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	// A freshly provisioned account has a real zero balance and an empty
	// history; both fields must be present in the payload.
	balance, ok := body["balance"]
	if !ok {
		t.Fatal("expected balance field in response")
	}
	if string(balance) != "0" {
		t.Fatalf("expected balance 0, got %s", balance)
	}
	tokens, ok := body["tokens"]
	if !ok {
		t.Fatal("expected tokens field in response")
	}
	if string(tokens) != "[]" {
		t.Fatalf("expected empty tokens array, got %s", tokens)
	}
}

func TestInfoHandlerUnknownAccount(t *testing.T) {
	handlers := NewTokenHandlers(app.NewService(&infoRepoStub{}, nil, nil, 0))
	router := TokenRoutes(handlers, "")

	req := httptest.NewRequest(http.MethodGet, "/accounts/ACC404", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", recorder.Code)
	}

	var body struct {
		Found bool `json:"found"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Found {
		t.Fatal("expected found=false for an unknown account")
	}
}
