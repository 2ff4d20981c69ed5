/**
 * @description
 * Payment authorization boundary. The lifecycle engine does not talk to a
 * settlement network itself; it asks a PaymentAuthorizer whether a payment
 * may be captured. The default implementation approves any positive amount;
 * a remote gateway client (pkg/gatewayclient) can be wired in instead.
 */

package app

import "context"

// PaymentAuthorizer decides whether a payment may be captured. Implementations
// must be safe for concurrent use.
type PaymentAuthorizer interface {
	Authorize(ctx context.Context, accountNumber string, amount int64) (bool, error)
}

// StubAuthorizer approves every positive amount.
type StubAuthorizer struct{}

// Authorize implements PaymentAuthorizer.
func (StubAuthorizer) Authorize(_ context.Context, _ string, amount int64) (bool, error) {
	return amount > 0, nil
}
