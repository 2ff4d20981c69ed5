/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract
 * for all data access operations required by the token-service. By defining an
 * interface, we decouple the lifecycle logic from the specific database
 * implementation (e.g., PostgreSQL), making the code more modular and easier
 * to test.
 *
 * The interface covers the two durable stores of the system:
 * - the ledger store (accounts and the append-only payment history), and
 * - the token registry (token rows with uniqueness and lookup guarantees).
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/transfa/token-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Ledger store methods
	// CreateAccount inserts a new account. It returns ErrAccountExists and
	// performs no mutation when the account number is already taken.
	CreateAccount(ctx context.Context, accountNumber string, initialBalance int64) error
	FindAccount(ctx context.Context, accountNumber string) (*domain.Account, error)
	// CreditBalance atomically adds amount (> 0) to the account balance and
	// returns the new balance.
	CreditBalance(ctx context.Context, accountNumber string, amount int64) (int64, error)
	// RecordPayment appends one immutable payment row and returns its id.
	RecordPayment(ctx context.Context, accountNumber string, amount int64, status string) (int64, error)

	// Token registry methods
	// MintTokenWithPayment performs the whole generate flow in one database
	// transaction: credit the balance, append a completed payment, and insert
	// a freshly drawn unique token. On a duplicate-key collision the mint
	// retries with a new candidate. Either every effect is visible afterwards
	// or none is. Returns the minted token, the payment id, and the new balance.
	MintTokenWithPayment(ctx context.Context, accountNumber string, amount int64, ttl time.Duration) (*domain.Token, int64, int64, error)
	// FindToken looks a token up by exact (token, account) pair. A token
	// queried under the wrong account is indistinguishable from a missing one.
	FindToken(ctx context.Context, token, accountNumber string) (*domain.Token, error)
	// ConsumeToken atomically validates and marks the token used. A second
	// call observes ErrTokenUsed; it never silently succeeds twice.
	ConsumeToken(ctx context.Context, token, accountNumber string) error
	// ListTokensByAccount returns the account's tokens newest first.
	ListTokensByAccount(ctx context.Context, accountNumber string) ([]domain.Token, error)
	// CountExpiredActiveTokens reports how many unused tokens are past their
	// deadline. Read by the scheduled expiry sweep.
	CountExpiredActiveTokens(ctx context.Context) (int64, error)
}
