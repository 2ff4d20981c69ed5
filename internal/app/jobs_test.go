package app

import (
	"context"
	"testing"
	"time"

	"github.com/transfa/token-service/internal/domain"
)

func TestExpirySweeperPublishesCount(t *testing.T) {
	repo := newFakeRepository()
	publisher := &recordingPublisher{}

	now := time.Now().UTC()
	repo.insertToken(domain.Token{
		Token:         "1000000001",
		AccountNumber: "ACC001",
		AmountPaid:    1000,
		CreatedAt:     now.Add(-48 * time.Hour),
		ExpiresAt:     now.Add(-24 * time.Hour),
	})
	repo.insertToken(domain.Token{
		Token:         "1000000002",
		AccountNumber: "ACC001",
		AmountPaid:    1000,
		IsUsed:        true,
		CreatedAt:     now.Add(-48 * time.Hour),
		ExpiresAt:     now.Add(-24 * time.Hour),
	})
	repo.insertToken(domain.Token{
		Token:         "1000000003",
		AccountNumber: "ACC001",
		AmountPaid:    1000,
		CreatedAt:     now,
		ExpiresAt:     now.Add(24 * time.Hour),
	})

	sweeper := NewExpirySweeper(repo, publisher)
	sweeper.Run()

	keys := publisher.published()
	if len(keys) != 1 || keys[0] != RoutingKeySweep {
		t.Fatalf("expected one %s event, got %v", RoutingKeySweep, keys)
	}

	// Only the unused expired token counts.
	count, err := repo.CountExpiredActiveTokens(context.Background())
	if err != nil {
		t.Fatalf("CountExpiredActiveTokens returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one expired active token, got %d", count)
	}
}

func TestExpirySweeperSkipsPublishWithoutProducer(t *testing.T) {
	repo := newFakeRepository()
	sweeper := NewExpirySweeper(repo, nil)

	// Must not panic with a nil producer.
	sweeper.Run()
}
