/**
 * @description
 * This file defines the ledger-side domain models for the token-service:
 * prepaid accounts and the append-only payment history that funds token mints.
 *
 * @notes
 * - Amounts are stored as `int64` to represent the value in the smallest
 *   currency unit (cents), which avoids floating-point inaccuracies with
 *   financial data.
 * - Payments are immutable after creation; a payment funds at most one token.
 */

package domain

import "time"

// Payment status values. A payment row is written exactly once and never
// transitions afterwards.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Account represents a prepaid account. The account number is the primary
// identity and is trusted as given by the caller.
type Account struct {
	AccountNumber string    `json:"account_number"`
	Balance       int64     `json:"balance"` // in cents
	CreatedAt     time.Time `json:"created_at"`
}

// Payment is one row of the append-only payment audit trail.
// This struct maps directly to the `payments` table in the database.
type Payment struct {
	PaymentID     int64     `json:"payment_id"`
	AccountNumber string    `json:"account_number"`
	Amount        int64     `json:"amount"` // in cents
	Status        string    `json:"status"` // 'pending', 'completed', 'failed'
	CreatedAt     time.Time `json:"created_at"`
}

// CreateAccountRequest is the DTO for account provisioning API requests.
type CreateAccountRequest struct {
	AccountNumber  string `json:"account_number"`
	InitialBalance int64  `json:"initial_balance"` // in cents
}

// AccountInfo aggregates the current balance with the full token history for
// one account, newest token first.
type AccountInfo struct {
	AccountNumber string  `json:"account_number"`
	Balance       int64   `json:"balance"` // in cents
	Tokens        []Token `json:"tokens"`
}
