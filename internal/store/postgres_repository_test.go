package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/transfa/token-service/internal/domain"
)

func TestNewTokenCandidate(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		candidate, err := newTokenCandidate()
		if err != nil {
			t.Fatalf("newTokenCandidate returned error: %v", err)
		}
		if len(candidate) != 10 {
			t.Fatalf("expected 10-digit candidate, got %q (len %d)", candidate, len(candidate))
		}
		if candidate[0] == '0' {
			t.Fatalf("expected no leading zero, got %q", candidate)
		}
		for _, c := range candidate {
			if c < '0' || c > '9' {
				t.Fatalf("expected numeric candidate, got %q", candidate)
			}
		}
		seen[candidate] = true
	}
	// Collisions inside 1000 draws from a 9e9 space would point at a broken
	// generator rather than bad luck.
	if len(seen) < 990 {
		t.Fatalf("expected near-unique draws, got %d unique of 1000", len(seen))
	}
}

func TestMintWithRetryRedrawsOnCollision(t *testing.T) {
	minted := &domain.Token{
		Token:     "1234567890",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}

	// Two taken candidates, then a free one.
	calls := 0
	token, paymentID, newBalance, err := mintWithRetry(maxMintAttempts, func() (*domain.Token, int64, int64, error) {
		calls++
		if calls <= 2 {
			return nil, 0, 0, errTokenCollision
		}
		return minted, 7, 12500, nil
	})
	if err != nil {
		t.Fatalf("mintWithRetry returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if token != minted || paymentID != 7 || newBalance != 12500 {
		t.Fatalf("expected the third attempt's result, got token=%v payment=%d balance=%d", token, paymentID, newBalance)
	}
}

func TestMintWithRetryRedrawsOnUniqueViolation(t *testing.T) {
	// A concurrent insert landing the same candidate surfaces as a
	// primary-key violation rather than errTokenCollision.
	calls := 0
	_, _, _, err := mintWithRetry(maxMintAttempts, func() (*domain.Token, int64, int64, error) {
		calls++
		if calls == 1 {
			return nil, 0, 0, &pgconn.PgError{Code: "23505"}
		}
		return &domain.Token{Token: "1234567890"}, 1, 1000, nil
	})
	if err != nil {
		t.Fatalf("mintWithRetry returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected a redraw after the unique violation, got %d attempts", calls)
	}
}

func TestMintWithRetryExhaustionReturnsMintConflict(t *testing.T) {
	calls := 0
	_, _, _, err := mintWithRetry(maxMintAttempts, func() (*domain.Token, int64, int64, error) {
		calls++
		return nil, 0, 0, errTokenCollision
	})
	if !errors.Is(err, ErrMintConflict) {
		t.Fatalf("expected ErrMintConflict, got %v", err)
	}
	if calls != maxMintAttempts {
		t.Fatalf("expected exactly %d attempts, got %d", maxMintAttempts, calls)
	}
}

func TestMintWithRetryStopsOnOtherErrors(t *testing.T) {
	boom := errors.New("connection lost")
	calls := 0
	_, _, _, err := mintWithRetry(maxMintAttempts, func() (*domain.Token, int64, int64, error) {
		calls++
		return nil, 0, 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the underlying error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no retry on a non-collision error, got %d attempts", calls)
	}
}

func TestCreditBalanceRejectsNonPositiveAmount(t *testing.T) {
	// The guard runs before any database access, so a nil pool is fine.
	repo := NewPostgresRepository(nil)
	for _, amount := range []int64{0, -500} {
		_, err := repo.CreditBalance(context.Background(), "ACC001", amount)
		if !errors.Is(err, ErrInvalidCredit) {
			t.Fatalf("amount %d: expected ErrInvalidCredit, got %v", amount, err)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: false,
		},
		{
			name: "unique violation",
			err:  &pgconn.PgError{Code: "23505"},
			want: true,
		},
		{
			name: "wrapped unique violation",
			err:  errors.Join(errors.New("insert failed"), &pgconn.PgError{Code: "23505"}),
			want: true,
		},
		{
			name: "foreign key violation is not unique",
			err:  &pgconn.PgError{Code: "23503"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Fatalf("expected %t, got %t", tt.want, got)
			}
		})
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	if !isForeignKeyViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("expected 23503 to be a foreign key violation")
	}
	if isForeignKeyViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("expected 23505 not to be a foreign key violation")
	}
}
