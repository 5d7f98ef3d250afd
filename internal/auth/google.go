// Package auth signs visitors in with Google ID tokens and binds the
// resulting WooCommerce customer to the session.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"

	"storefront/internal/model"
	"storefront/internal/session"
	"storefront/internal/woocommerce"
)

const customerKey = "customer_id"

// CustomerAPI is the slice of the REST client the authenticator needs.
type CustomerAPI interface {
	FindOrCreateCustomer(ctx context.Context, email, firstName, lastName string) (*woocommerce.Customer, error)
}

// TokenVerifier validates a Google ID token against the configured client
// id. The default implementation uses Google's public keys.
type TokenVerifier interface {
	Verify(idToken string, audience []string) error
}

type googleVerifier struct{}

func (googleVerifier) Verify(idToken string, audience []string) error {
	v := googleAuthIDTokenVerifier.Verifier{}
	return v.VerifyIDToken(idToken, audience)
}

// Authenticator verifies Google sign-ins and maps them to WooCommerce
// customers.
type Authenticator struct {
	clientID  string
	customers CustomerAPI
	sess      session.Store
	verifier  TokenVerifier
	logger    *slog.Logger
}

// NewAuthenticator creates an Authenticator. verifier may be nil to use the
// real Google verification.
func NewAuthenticator(clientID string, customers CustomerAPI, sess session.Store, verifier TokenVerifier, logger *slog.Logger) *Authenticator {
	if verifier == nil {
		verifier = googleVerifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		clientID:  clientID,
		customers: customers,
		sess:      sess,
		verifier:  verifier,
		logger:    logger,
	}
}

// Identity is the signed-in state stored on the session.
type Identity struct {
	CustomerID int    `json:"customer_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
}

// SignIn verifies the ID token, finds or creates the matching customer,
// and records the identity on the session.
func (a *Authenticator) SignIn(ctx context.Context, sid, idToken string) (*Identity, error) {
	if idToken == "" {
		return nil, model.NewValidationError("credential", "Missing sign-in credential.")
	}
	if err := a.verifier.Verify(idToken, []string{a.clientID}); err != nil {
		return nil, model.NewUnauthorizedError("Sign-in could not be verified.")
	}

	claims, err := googleAuthIDTokenVerifier.Decode(idToken)
	if err != nil {
		return nil, model.NewUnauthorizedError("Sign-in could not be verified.")
	}
	if claims.Email == "" {
		return nil, model.NewUnauthorizedError("Google account has no email.")
	}

	first, last := model.SplitName(claims.Name)
	customer, err := a.customers.FindOrCreateCustomer(ctx, claims.Email, first, last)
	if err != nil {
		return nil, err
	}

	if err := a.sess.Set(ctx, sid, customerKey, strconv.Itoa(customer.ID)); err != nil {
		return nil, fmt.Errorf("persisting sign-in: %w", err)
	}

	a.logger.Info("customer signed in", "customer_id", customer.ID)
	return &Identity{CustomerID: customer.ID, Email: claims.Email, Name: claims.Name}, nil
}

// CustomerID returns the signed-in customer id for the session, zero when
// anonymous.
func (a *Authenticator) CustomerID(ctx context.Context, sid string) int {
	val, ok, err := a.sess.Get(ctx, sid, customerKey)
	if err != nil || !ok {
		return 0
	}
	id, _ := strconv.Atoi(val)
	return id
}

// SignOut clears the session's identity. The cart survives sign-out.
func (a *Authenticator) SignOut(ctx context.Context, sid string) error {
	return a.sess.Delete(ctx, sid, customerKey)
}
