package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"storefront/internal/model"
	"storefront/internal/session"
	"storefront/internal/woocommerce"
)

type fakeVerifier struct {
	err      error
	audience []string
}

func (f *fakeVerifier) Verify(_ string, audience []string) error {
	f.audience = audience
	return f.err
}

type fakeCustomers struct {
	customer *woocommerce.Customer
	gotEmail string
	gotFirst string
}

func (f *fakeCustomers) FindOrCreateCustomer(_ context.Context, email, firstName, _ string) (*woocommerce.Customer, error) {
	f.gotEmail = email
	f.gotFirst = firstName
	return f.customer, nil
}

// makeIDToken builds an unsigned JWT with the given claims. Verification is
// faked in tests; only the claim decoding path sees this token.
func makeIDToken(t *testing.T, claims map[string]string) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatal(err)
	}
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	sess := session.NewMemoryStore(0)
	verifier := &fakeVerifier{}
	customers := &fakeCustomers{customer: &woocommerce.Customer{ID: 7}}
	a := NewAuthenticator("client-id-123", customers, sess, verifier, nil)

	token := makeIDToken(t, map[string]string{"email": "ana@example.com", "name": "Ana Reyes"})
	identity, err := a.SignIn(ctx, "sid1", token)
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	if len(verifier.audience) != 1 || verifier.audience[0] != "client-id-123" {
		t.Errorf("audience = %v, want the configured client id", verifier.audience)
	}
	if customers.gotEmail != "ana@example.com" || customers.gotFirst != "Ana" {
		t.Errorf("customer lookup = %q / %q", customers.gotEmail, customers.gotFirst)
	}
	if identity.CustomerID != 7 {
		t.Errorf("CustomerID = %d, want 7", identity.CustomerID)
	}
	if got := a.CustomerID(ctx, "sid1"); got != 7 {
		t.Errorf("session CustomerID = %d, want 7", got)
	}
}

func TestSignInRejectsBadToken(t *testing.T) {
	sess := session.NewMemoryStore(0)
	verifier := &fakeVerifier{err: errors.New("invalid signature")}
	a := NewAuthenticator("client-id-123", &fakeCustomers{}, sess, verifier, nil)

	token := makeIDToken(t, map[string]string{"email": "x@example.com"})
	_, err := a.SignIn(context.Background(), "sid1", token)
	if !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("err = %v, want unauthorized", err)
	}
	if got := a.CustomerID(context.Background(), "sid1"); got != 0 {
		t.Errorf("CustomerID = %d, want 0 after rejected sign-in", got)
	}
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()
	sess := session.NewMemoryStore(0)
	a := NewAuthenticator("client-id-123", &fakeCustomers{customer: &woocommerce.Customer{ID: 7}}, sess, &fakeVerifier{}, nil)

	token := makeIDToken(t, map[string]string{"email": "ana@example.com", "name": "Ana"})
	if _, err := a.SignIn(ctx, "sid1", token); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if err := a.SignOut(ctx, "sid1"); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if got := a.CustomerID(ctx, "sid1"); got != 0 {
		t.Errorf("CustomerID = %d, want 0 after sign-out", got)
	}
}
