/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. It contains all the necessary SQL queries for the ledger store
 * (accounts, payments) and the token registry (tokens), including the two
 * transactional hot paths: the atomic generate flow and the atomic
 * validate-then-consume flow.
 *
 * @dependencies
 * - context, crypto/rand, errors, fmt, math/big, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/transfa/token-service/internal/domain"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrTokenNotFound   = errors.New("token not found or wrong owner")
	ErrTokenUsed       = errors.New("token already used")
	ErrTokenExpired    = errors.New("token expired")
	ErrMintConflict    = errors.New("token mint retries exhausted")
	ErrInvalidCredit   = errors.New("credit amount must be positive")
)

// errTokenCollision signals that a freshly drawn candidate was already present
// in storage. The mint loop treats it the same as a concurrent duplicate
// insert: roll back and redraw.
var errTokenCollision = errors.New("token candidate collision")

// maxMintAttempts bounds the redraw loop. The 10-digit space holds 9e9 values,
// so hitting this limit means something other than bad luck is wrong.
const maxMintAttempts = 16

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateAccount inserts a new account row. The insert is the uniqueness check:
// a duplicate primary key maps to ErrAccountExists and leaves no mutation.
func (r *PostgresRepository) CreateAccount(ctx context.Context, accountNumber string, initialBalance int64) error {
	query := `INSERT INTO accounts (account_number, balance) VALUES ($1, $2)`
	_, err := r.db.Exec(ctx, query, accountNumber, initialBalance)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAccountExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// FindAccount retrieves one account by its number.
func (r *PostgresRepository) FindAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT account_number, balance, created_at FROM accounts WHERE account_number = $1`
	err := r.db.QueryRow(ctx, query, accountNumber).Scan(&account.AccountNumber, &account.Balance, &account.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// CreditBalance adds amount to the account balance in a single statement so
// concurrent credits cannot lose updates. The amount must be positive; this
// operation never debits.
func (r *PostgresRepository) CreditBalance(ctx context.Context, accountNumber string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidCredit
	}
	var newBalance int64
	query := `UPDATE accounts SET balance = balance + $1 WHERE account_number = $2 RETURNING balance`
	err := r.db.QueryRow(ctx, query, amount, accountNumber).Scan(&newBalance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("failed to credit balance: %w", err)
	}
	return newBalance, nil
}

// RecordPayment appends one immutable payment row and returns its id.
func (r *PostgresRepository) RecordPayment(ctx context.Context, accountNumber string, amount int64, status string) (int64, error) {
	var paymentID int64
	query := `
		INSERT INTO payments (account_number, amount, status)
		VALUES ($1, $2, $3)
		RETURNING payment_id
	`
	err := r.db.QueryRow(ctx, query, accountNumber, amount, status).Scan(&paymentID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("failed to record payment: %w", err)
	}
	return paymentID, nil
}

// MintTokenWithPayment runs the whole generate flow: credit the balance,
// append a completed payment, and insert a unique token, all in one database
// transaction. A candidate that turns out to be taken (either seen by the
// pre-insert existence check or by a concurrent insert hitting the primary
// key) rolls the transaction back and the flow retries with a fresh draw.
func (r *PostgresRepository) MintTokenWithPayment(ctx context.Context, accountNumber string, amount int64, ttl time.Duration) (*domain.Token, int64, int64, error) {
	return mintWithRetry(maxMintAttempts, func() (*domain.Token, int64, int64, error) {
		return r.mintOnce(ctx, accountNumber, amount, ttl)
	})
}

// mintWithRetry reruns mint with a fresh candidate after every collision,
// up to attempts times. Each call to mint is a whole new transaction; a
// collision aborts the previous one, so the retry must start over.
func mintWithRetry(attempts int, mint func() (*domain.Token, int64, int64, error)) (*domain.Token, int64, int64, error) {
	for attempt := 0; attempt < attempts; attempt++ {
		token, paymentID, newBalance, err := mint()
		if err != nil {
			if errors.Is(err, errTokenCollision) || isUniqueViolation(err) {
				continue
			}
			return nil, 0, 0, err
		}
		return token, paymentID, newBalance, nil
	}
	return nil, 0, 0, ErrMintConflict
}

func (r *PostgresRepository) mintOnce(ctx context.Context, accountNumber string, amount int64, ttl time.Duration) (*domain.Token, int64, int64, error) {
	candidate, err := newTokenCandidate()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to draw token candidate: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Lock the account row. Serializes concurrent generates per account
	// and confirms the account exists before any effect.
	var newBalance int64
	err = tx.QueryRow(ctx, `
		SELECT balance FROM accounts WHERE account_number = $1 FOR UPDATE
	`, accountNumber).Scan(&newBalance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, 0, 0, ErrAccountNotFound
		}
		return nil, 0, 0, fmt.Errorf("failed to lock account: %w", err)
	}

	// 2. Verified check-then-insert: the drawn candidate is only accepted
	// once storage confirms it is unused. The primary key still backs this
	// up against a concurrent mint landing the same value.
	var taken bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tokens WHERE token = $1)`, candidate).Scan(&taken)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to check token uniqueness: %w", err)
	}
	if taken {
		return nil, 0, 0, errTokenCollision
	}

	// 3. Credit the balance.
	err = tx.QueryRow(ctx, `
		UPDATE accounts SET balance = balance + $1 WHERE account_number = $2 RETURNING balance
	`, amount, accountNumber).Scan(&newBalance)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to credit balance: %w", err)
	}

	// 4. Append the completed payment that funds this mint.
	var paymentID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO payments (account_number, amount, status)
		VALUES ($1, $2, $3)
		RETURNING payment_id
	`, accountNumber, amount, domain.PaymentStatusCompleted).Scan(&paymentID)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to record payment: %w", err)
	}

	// 5. Insert the token row.
	now := time.Now().UTC()
	token := domain.Token{
		Token:         candidate,
		AccountNumber: accountNumber,
		AmountPaid:    amount,
		IsUsed:        false,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO tokens (token, account_number, amount_paid, is_used, created_at, expires_at)
		VALUES ($1, $2, $3, FALSE, $4, $5)
	`, token.Token, token.AccountNumber, token.AmountPaid, token.CreatedAt, token.ExpiresAt)
	if err != nil {
		return nil, 0, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to commit mint: %w", err)
	}
	return &token, paymentID, newBalance, nil
}

// FindToken retrieves a token by exact (token, account) pair. Ownership is not
// leaked: the wrong account sees the same ErrTokenNotFound as a missing token.
func (r *PostgresRepository) FindToken(ctx context.Context, token, accountNumber string) (*domain.Token, error) {
	var record domain.Token
	query := `
		SELECT token, account_number, amount_paid, is_used, created_at, expires_at
		FROM tokens
		WHERE token = $1 AND account_number = $2
	`
	err := r.db.QueryRow(ctx, query, token, accountNumber).Scan(
		&record.Token,
		&record.AccountNumber,
		&record.AmountPaid,
		&record.IsUsed,
		&record.CreatedAt,
		&record.ExpiresAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ConsumeToken validates and marks the token used as one atomic unit. The row
// lock guarantees that of any number of concurrent consumers exactly one
// observes the token unused; the rest get ErrTokenUsed.
func (r *PostgresRepository) ConsumeToken(ctx context.Context, token, accountNumber string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Lock the token row and validate, in the fixed order:
	// exists -> unused -> unexpired.
	var isUsed bool
	var expiresAt time.Time
	query := `
		SELECT is_used, expires_at
		FROM tokens
		WHERE token = $1 AND account_number = $2
		FOR UPDATE
	`
	err = tx.QueryRow(ctx, query, token, accountNumber).Scan(&isUsed, &expiresAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrTokenNotFound
		}
		return fmt.Errorf("failed to get and lock token: %w", err)
	}
	if isUsed {
		return ErrTokenUsed
	}
	if !time.Now().Before(expiresAt) {
		return ErrTokenExpired
	}

	// 2. Flip the used flag.
	_, err = tx.Exec(ctx, `
		UPDATE tokens SET is_used = TRUE WHERE token = $1 AND account_number = $2
	`, token, accountNumber)
	if err != nil {
		return fmt.Errorf("failed to mark token used: %w", err)
	}

	return tx.Commit(ctx)
}

// ListTokensByAccount returns the account's full token history, newest first.
func (r *PostgresRepository) ListTokensByAccount(ctx context.Context, accountNumber string) ([]domain.Token, error) {
	query := `
		SELECT token, account_number, amount_paid, is_used, created_at, expires_at
		FROM tokens
		WHERE account_number = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []domain.Token
	for rows.Next() {
		var t domain.Token
		if err := rows.Scan(&t.Token, &t.AccountNumber, &t.AmountPaid, &t.IsUsed, &t.CreatedAt, &t.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan token row: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// CountExpiredActiveTokens reports how many unused tokens are past expiry.
func (r *PostgresRepository) CountExpiredActiveTokens(ctx context.Context) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM tokens WHERE is_used = FALSE AND expires_at <= NOW()`
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count expired tokens: %w", err)
	}
	return count, nil
}

// tokenCandidateMin/Max bound the fixed-width numeric identifier space,
// matching ten decimal digits with no leading zero.
const (
	tokenCandidateMin = int64(1_000_000_000)
	tokenCandidateMax = int64(9_999_999_999)
)

// newTokenCandidate draws one identifier from the 10-digit decimal space.
func newTokenCandidate() (string, error) {
	span := big.NewInt(tokenCandidateMax - tokenCandidateMin + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", tokenCandidateMin+n.Int64()), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
