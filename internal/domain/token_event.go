package domain

import (
	"time"

	"github.com/google/uuid"
)

// TokenMintedEvent is published after a successful payment capture and mint.
type TokenMintedEvent struct {
	EventID       uuid.UUID `json:"event_id"`
	AccountNumber string    `json:"account_number"`
	Token         string    `json:"token"`
	AmountPaid    int64     `json:"amount_paid"`
	PaymentID     int64     `json:"payment_id"`
	ExpiresAt     time.Time `json:"expires_at"`
	Timestamp     time.Time `json:"timestamp"`
}

// TokenUsedEvent is published after a token has been irreversibly consumed.
type TokenUsedEvent struct {
	EventID       uuid.UUID `json:"event_id"`
	AccountNumber string    `json:"account_number"`
	Token         string    `json:"token"`
	Timestamp     time.Time `json:"timestamp"`
}

// ExpirySweepEvent summarizes one run of the scheduled expiry sweep.
type ExpirySweepEvent struct {
	EventID      uuid.UUID `json:"event_id"`
	ExpiredCount int64     `json:"expired_count"`
	Timestamp    time.Time `json:"timestamp"`
}
