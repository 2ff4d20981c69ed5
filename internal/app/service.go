/**
 * @description
 * This file contains the core business logic for the token-service. The
 * `Service` struct is the token lifecycle engine: it orchestrates payment
 * capture and token minting, read-only validation, single-use consumption,
 * and account info aggregation, coordinating between the database repository,
 * the pluggable payment authorizer, and the message broker.
 *
 * Key features:
 * - Generate is atomic as a group: balance credit, payment record, and token
 *   mint all land together or not at all.
 * - Validate and Use share one validation order: owner match, then unused,
 *   then unexpired, short-circuiting at the first failure.
 * - Use delegates the validate-then-mark step to the repository so that of
 *   any number of concurrent consumers exactly one succeeds.
 * - Publishes token.minted and token.used events to RabbitMQ for asynchronous
 *   processing by other services (best effort).
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For event identifiers.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/transfa/token-service/internal/domain"
	"github.com/transfa/token-service/internal/store"
	"github.com/transfa/token-service/pkg/rabbitmq"
)

const (
	// DefaultTokenTTL is the fixed validity window applied to every mint
	// unless overridden by configuration.
	DefaultTokenTTL = 24 * time.Hour

	EventsExchange      = "tokens.events"
	RoutingKeyMinted    = "token.minted"
	RoutingKeyUsed      = "token.used"
	RoutingKeySweep     = "token.expiry_sweep"
	redemptionRateScope = "token_use"
)

// User-facing outcome messages. The validate and use paths report the first
// failing check only.
const (
	MsgTokenValid    = "Token is valid"
	MsgTokenInvalid  = "Invalid token or token doesn't belong to this account"
	MsgTokenUsed     = "Token has already been used"
	MsgTokenExpired  = "Token has expired"
	MsgPaymentFailed = "Payment was rejected"
)

var (
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrRateLimited   = errors.New("too many redemption attempts")
)

// RateLimiter is the interface implemented by distributed rate limiters.
// A nil limiter disables limiting entirely.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for the token lifecycle.
type Service struct {
	repo          store.Repository
	authorizer    PaymentAuthorizer
	eventProducer rabbitmq.Publisher
	tokenTTL      time.Duration

	redemptionLimiter        RateLimiter
	redemptionLimitPerMinute int
}

// NewService creates a new token lifecycle service instance.
func NewService(repo store.Repository, authorizer PaymentAuthorizer, producer rabbitmq.Publisher, tokenTTL time.Duration) *Service {
	if authorizer == nil {
		authorizer = StubAuthorizer{}
	}
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &Service{
		repo:          repo,
		authorizer:    authorizer,
		eventProducer: producer,
		tokenTTL:      tokenTTL,
	}
}

// SetRedemptionRateLimiter enables per-account rate limiting on the use path.
func (s *Service) SetRedemptionRateLimiter(limiter RateLimiter, perMinute int) {
	s.redemptionLimiter = limiter
	s.redemptionLimitPerMinute = perMinute
}

// CreateAccount provisions a new prepaid account.
func (s *Service) CreateAccount(ctx context.Context, accountNumber string, initialBalance int64) error {
	if accountNumber == "" {
		return errors.New("account number is required")
	}
	if initialBalance < 0 {
		return ErrInvalidAmount
	}
	return s.repo.CreateAccount(ctx, accountNumber, initialBalance)
}

// Generate captures a payment and mints a token for it. The account must
// exist before any side effect; a rejected payment records a failed payment
// row and mints nothing; an approved payment credits the balance, appends a
// completed payment, and mints, all atomically.
func (s *Service) Generate(ctx context.Context, accountNumber string, amount int64) (*domain.GenerateResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	if _, err := s.repo.FindAccount(ctx, accountNumber); err != nil {
		return nil, fmt.Errorf("failed to resolve account: %w", err)
	}

	approved, err := s.authorizer.Authorize(ctx, accountNumber, amount)
	if err != nil {
		return nil, fmt.Errorf("payment authorization failed: %w", err)
	}
	if !approved {
		paymentID, recordErr := s.repo.RecordPayment(ctx, accountNumber, amount, domain.PaymentStatusFailed)
		if recordErr != nil {
			return nil, fmt.Errorf("failed to record rejected payment: %w", recordErr)
		}
		log.Printf("level=warn component=service op=generate outcome=rejected account=%s amount=%d payment_id=%d", accountNumber, amount, paymentID)
		return &domain.GenerateResult{
			Status:    domain.PaymentStatusFailed,
			PaymentID: paymentID,
			Message:   MsgPaymentFailed,
		}, nil
	}

	token, paymentID, newBalance, err := s.repo.MintTokenWithPayment(ctx, accountNumber, amount, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to mint token: %w", err)
	}

	s.publish(ctx, RoutingKeyMinted, domain.TokenMintedEvent{
		EventID:       uuid.New(),
		AccountNumber: accountNumber,
		Token:         token.Token,
		AmountPaid:    amount,
		PaymentID:     paymentID,
		ExpiresAt:     token.ExpiresAt,
		Timestamp:     time.Now().UTC(),
	})

	log.Printf("level=info component=service op=generate outcome=completed account=%s amount=%d payment_id=%d", accountNumber, amount, paymentID)
	return &domain.GenerateResult{
		Status:     domain.PaymentStatusCompleted,
		Token:      token.Token,
		PaymentID:  paymentID,
		NewBalance: newBalance,
	}, nil
}

// Validate runs the read-only eligibility check. It never mutates the token.
func (s *Service) Validate(ctx context.Context, accountNumber, token string) (*domain.ValidationResult, error) {
	record, err := s.repo.FindToken(ctx, token, accountNumber)
	if err != nil {
		if errors.Is(err, store.ErrTokenNotFound) {
			return &domain.ValidationResult{Valid: false, Message: MsgTokenInvalid}, nil
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	if record.IsUsed {
		return &domain.ValidationResult{Valid: false, Message: MsgTokenUsed}, nil
	}
	if record.Expired(time.Now()) {
		return &domain.ValidationResult{Valid: false, Message: MsgTokenExpired}, nil
	}
	return &domain.ValidationResult{Valid: true, Message: MsgTokenValid}, nil
}

// Use validates and consumes the token as one atomic unit. A token that fails
// validation is never marked used.
func (s *Service) Use(ctx context.Context, accountNumber, token string) (*domain.UseResult, error) {
	if err := s.consumeRedemptionBudget(ctx, accountNumber); err != nil {
		return nil, err
	}

	err := s.repo.ConsumeToken(ctx, token, accountNumber)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrTokenNotFound):
			return &domain.UseResult{Success: false, Message: MsgTokenInvalid}, nil
		case errors.Is(err, store.ErrTokenUsed):
			return &domain.UseResult{Success: false, Message: MsgTokenUsed}, nil
		case errors.Is(err, store.ErrTokenExpired):
			return &domain.UseResult{Success: false, Message: MsgTokenExpired}, nil
		}
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}

	s.publish(ctx, RoutingKeyUsed, domain.TokenUsedEvent{
		EventID:       uuid.New(),
		AccountNumber: accountNumber,
		Token:         token,
		Timestamp:     time.Now().UTC(),
	})

	log.Printf("level=info component=service op=use outcome=consumed account=%s token=%s", accountNumber, token)
	return &domain.UseResult{
		Success: true,
		Message: fmt.Sprintf("Token %s has been successfully used and marked as consumed", token),
	}, nil
}

// Info aggregates the current balance with the full token history.
func (s *Service) Info(ctx context.Context, accountNumber string) (*domain.AccountInfo, error) {
	account, err := s.repo.FindAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	tokens, err := s.repo.ListTokensByAccount(ctx, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	return &domain.AccountInfo{
		AccountNumber: account.AccountNumber,
		Balance:       account.Balance,
		Tokens:        tokens,
	}, nil
}

// consumeRedemptionBudget applies the optional per-account fixed-window rate
// limit. A limiter failure degrades open: redemptions keep working when Redis
// is unreachable.
func (s *Service) consumeRedemptionBudget(ctx context.Context, accountNumber string) error {
	if s.redemptionLimiter == nil || s.redemptionLimitPerMinute <= 0 {
		return nil
	}
	count, retryAfter, err := s.redemptionLimiter.ConsumeRateLimit(ctx, redemptionRateScope, accountNumber, s.redemptionLimitPerMinute, time.Minute)
	if err != nil {
		log.Printf("level=warn component=service op=use msg=\"rate limiter unavailable; allowing request\" account=%s err=%v", accountNumber, err)
		return nil
	}
	if count > s.redemptionLimitPerMinute {
		log.Printf("level=warn component=service op=use outcome=rate_limited account=%s retry_after_s=%d", accountNumber, retryAfter)
		return ErrRateLimited
	}
	return nil
}

// publish sends one event to the broker, logging instead of failing the
// request when publication is impossible.
func (s *Service) publish(ctx context.Context, routingKey string, body interface{}) {
	if s.eventProducer == nil {
		return
	}
	if err := s.eventProducer.Publish(ctx, EventsExchange, routingKey, body); err != nil {
		log.Printf("level=warn component=service msg=\"event publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}
