package payment

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"sync"

	gateway "github.com/mark3labs/x402-gateway"
)

// Scheme is the payment scheme the gateway issues: the client authorizes a
// ceiling and the gateway settles the actual metered cost.
const Scheme = "upto"

// Result is an HTTP-shaped outcome produced when the gate stops a request
// before any billable work: a 402 challenge, a 400 for malformed headers, or
// a 503 when the facilitator is unreachable.
type Result struct {
	Status  int
	Headers map[string]string
	Body    interface{}
}

// VerifyContext is the per-request payment state carried from verify to
// settle. It is not persisted; one context settles at most once.
type VerifyContext struct {
	Payment     gateway.PaymentPayload
	Requirement gateway.PaymentRequirement
	Payer       string

	// MaxAmount is the ceiling authorized during verify.
	MaxAmount *big.Int

	mu      sync.Mutex
	settled bool
}

// Gate brackets billable work with the two-phase x402 protocol:
// VerifyAndReserve before any work, Settle after the work completes.
type Gate struct {
	facilitator *FacilitatorClient
	fallback    *FacilitatorClient
	chain       gateway.ChainConfig
	payTo       string
	logger      *slog.Logger

	mu    sync.RWMutex
	extra map[string]interface{} // facilitator-supplied requirement extras
}

// GateOption is a functional option for configuring a Gate.
type GateOption func(*Gate)

// WithFallbackFacilitator sets a backup facilitator tried when the primary
// verify or settle call errors.
func WithFallbackFacilitator(c *FacilitatorClient) GateOption {
	return func(g *Gate) { g.fallback = c }
}

// WithLogger sets the gate's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) GateOption {
	return func(g *Gate) { g.logger = l }
}

// NewGate creates a payment gate settling to payTo on the given chain.
func NewGate(chain gateway.ChainConfig, payTo string, facilitator *FacilitatorClient, opts ...GateOption) *Gate {
	g := &Gate{
		facilitator: facilitator,
		chain:       chain,
		payTo:       payTo,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Enrich fetches facilitator-specific requirement extras (like feePayer) from
// the /supported endpoint. Failure is tolerated: challenges are still valid
// without extras.
func (g *Gate) Enrich(ctx context.Context) {
	reqs, err := g.facilitator.EnrichRequirements(ctx, []gateway.PaymentRequirement{g.requirement("", big.NewInt(0))})
	if err != nil {
		g.logger.Warn("failed to enrich payment requirements from facilitator", "error", err)
		return
	}
	g.mu.Lock()
	g.extra = reqs[0].Extra
	g.mu.Unlock()
}

// requirement builds the single payment requirement the gateway accepts for a
// resource at the given ceiling.
func (g *Gate) requirement(resourceURL string, maxPrice *big.Int) gateway.PaymentRequirement {
	g.mu.RLock()
	extra := g.extra
	g.mu.RUnlock()

	return gateway.PaymentRequirement{
		Scheme:            Scheme,
		Network:           g.chain.NetworkID,
		MaxAmount:         maxPrice.String(),
		Asset:             g.chain.USDCAddress,
		PayTo:             g.payTo,
		Resource:          resourceURL,
		Description:       "Payment required for " + resourceURL,
		MaxTimeoutSeconds: 300,
		Extra:             extra,
	}
}

// Challenge builds the 402 result for a resource at the given ceiling.
func (g *Gate) Challenge(resourceURL string, maxPrice *big.Int) *Result {
	return &Result{
		Status:  http.StatusPaymentRequired,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body: gateway.PaymentRequiredResponse{
			X402Version: 1,
			Error:       "payment_required",
			Accepts:     []gateway.PaymentRequirement{g.requirement(resourceURL, maxPrice)},
		},
	}
}

// VerifyAndReserve parses the x-payment header and verifies the signed
// authorization with the facilitator against the resource and ceiling.
//
// On success the returned VerifyContext is non-nil and the Result nil; no
// work may begin otherwise. Missing or invalid payments produce a 402
// challenge Result, malformed headers a 400, and facilitator outages a 503.
func (g *Gate) VerifyAndReserve(ctx context.Context, headerValue, resourceURL, method string, maxPrice *big.Int) (*VerifyContext, *Result) {
	if headerValue == "" {
		g.logger.Info("no payment header provided", "resource", resourceURL)
		return nil, g.Challenge(resourceURL, maxPrice)
	}

	payment, err := ParsePaymentHeader(headerValue)
	if err != nil {
		g.logger.Warn("invalid payment header", "error", err)
		return nil, &Result{
			Status: http.StatusBadRequest,
			Body:   map[string]string{"error": "invalid_payment_header", "message": err.Error()},
		}
	}

	requirement := g.requirement(resourceURL, maxPrice)
	if payment.Scheme != requirement.Scheme || payment.Network != requirement.Network {
		g.logger.Warn("no matching requirement", "scheme", payment.Scheme, "network", payment.Network)
		return nil, g.Challenge(resourceURL, maxPrice)
	}

	g.logger.Info("verifying payment", "scheme", payment.Scheme, "network", payment.Network, "method", method)
	verifyResp, err := g.facilitator.Verify(ctx, payment, requirement)
	if err != nil && g.fallback != nil {
		g.logger.Warn("primary facilitator failed, trying fallback", "error", err)
		verifyResp, err = g.fallback.Verify(ctx, payment, requirement)
	}
	if err != nil {
		g.logger.Error("facilitator verification failed", "error", err)
		return nil, &Result{
			Status: http.StatusServiceUnavailable,
			Body:   map[string]string{"error": "facilitator_unavailable", "message": "payment verification failed"},
		}
	}

	if !verifyResp.IsValid {
		g.logger.Warn("payment verification failed", "reason", verifyResp.InvalidReason)
		return nil, g.Challenge(resourceURL, maxPrice)
	}

	g.logger.Info("payment verified", "payer", verifyResp.Payer)

	return &VerifyContext{
		Payment:     payment,
		Requirement: requirement,
		Payer:       verifyResp.Payer,
		MaxAmount:   new(big.Int).Set(maxPrice),
	}, nil
}

// Settle transfers the actual metered cost, capped at the authorized ceiling.
// It runs after the work (and for streams, after the last byte), so failures
// are logged and absorbed: the client keeps the bytes it received. Zero or
// negative amounts skip settlement entirely. Idempotent per VerifyContext.
func (g *Gate) Settle(ctx context.Context, vc *VerifyContext, actual *big.Int) *gateway.SettlementResponse {
	vc.mu.Lock()
	if vc.settled {
		vc.mu.Unlock()
		return nil
	}
	vc.settled = true
	vc.mu.Unlock()

	if actual == nil || actual.Sign() <= 0 {
		g.logger.Info("settlement skipped for zero amount", "payer", vc.Payer)
		return nil
	}

	amount := actual
	if actual.Cmp(vc.MaxAmount) > 0 {
		g.logger.Warn("actual cost exceeds authorized ceiling, settling at cap",
			"actual", actual.String(), "ceiling", vc.MaxAmount.String(), "payer", vc.Payer)
		amount = vc.MaxAmount
	}

	requirement := vc.Requirement
	requirement.MaxAmount = amount.String()

	g.logger.Info("settling payment", "payer", vc.Payer, "amount", amount.String())
	settlementResp, err := g.facilitator.Settle(ctx, vc.Payment, requirement)
	if err != nil && g.fallback != nil {
		g.logger.Warn("primary facilitator settlement failed, trying fallback", "error", err)
		settlementResp, err = g.fallback.Settle(ctx, vc.Payment, requirement)
	}
	if err != nil {
		// Work already happened; refunds are out of scope. Log and absorb.
		g.logger.Error("settlement failed", "error", err, "payer", vc.Payer)
		return nil
	}
	if !settlementResp.Success {
		g.logger.Warn("settlement unsuccessful", "reason", settlementResp.ErrorReason, "payer", vc.Payer)
		return settlementResp
	}

	g.logger.Info("payment settled", "transaction", settlementResp.Transaction, "amount", amount.String())
	return settlementResp
}

// IsChallenge reports whether a Result is a 402 challenge.
func (r *Result) IsChallenge() bool {
	return r != nil && r.Status == http.StatusPaymentRequired
}

// ErrNotVerified is returned by helpers that require a verified context.
var ErrNotVerified = errors.New("payment not verified")
