/**
 * @description
 * This file defines the core domain models for the token-service: the
 * single-use access token and the request/result DTOs exchanged between the
 * API layer and the lifecycle service.
 *
 * @notes
 * - A token identifier is a fixed-width 10-digit decimal string, globally
 *   unique across all accounts while the row exists.
 * - A token is valid iff it is unused, unexpired, and queried under the
 *   owning account. Once used or expired, validity is permanently false.
 */

package domain

import "time"

// Token represents a single-use, time-limited access credential bound to one
// account. This struct maps directly to the `tokens` table in the database.
type Token struct {
	Token         string    `json:"token"`
	AccountNumber string    `json:"account_number"`
	AmountPaid    int64     `json:"amount_paid"` // in cents
	IsUsed        bool      `json:"is_used"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Expired reports whether the token's deadline has passed at the given
// instant. Expiry is a data-level property of the row, not a scheduling one.
func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// GenerateRequest is the DTO for incoming token generation API requests.
type GenerateRequest struct {
	AccountNumber string `json:"account_number"`
	Amount        int64  `json:"amount"` // in cents
}

// TokenRequest is the DTO shared by the validate and use API endpoints.
type TokenRequest struct {
	AccountNumber string `json:"account_number"`
	Token         string `json:"token"`
}

// GenerateResult reports the outcome of a payment capture and token mint.
type GenerateResult struct {
	Status     string `json:"status"` // 'completed' or 'failed'
	Token      string `json:"token,omitempty"`
	PaymentID  int64  `json:"payment_id,omitempty"`
	NewBalance int64  `json:"new_balance,omitempty"` // in cents
	Message    string `json:"message,omitempty"`
}

// ValidationResult reports the outcome of a read-only token validity check.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// UseResult reports the outcome of a token consumption attempt.
type UseResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
