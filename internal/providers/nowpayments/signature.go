package nowpayments

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"strings"

	pkgerrors "github.com/lumenchat/billing-backend/pkg/errors"
)

// SignatureHeader carries the provider's HMAC over the delivery body.
const SignatureHeader = "x-nowpayments-sig"

// ComputeSignature derives the expected IPN signature: HMAC-SHA512 over the
// payload re-serialized with its keys sorted, which is how the provider
// canonicalizes before signing.
func ComputeSignature(raw []byte, secret string) (string, error) {
	doc := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return "", err
	}

	// json.Marshal of a map emits keys in sorted order, matching the
	// provider's canonical form.
	canonical, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifySignature checks the header-carried signature against the raw body.
// A payload that fails here never reaches classification.
func VerifySignature(raw []byte, header, secret string) error {
	if strings.TrimSpace(secret) == "" {
		return pkgerrors.New(pkgerrors.CodeDependency, "ipn secret is not configured")
	}
	if strings.TrimSpace(header) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "signature header is missing")
	}

	expected, err := ComputeSignature(raw, secret)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "payload cannot be canonicalized for verification")
	}

	provided := strings.ToLower(strings.TrimSpace(header))
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "signature mismatch")
	}
	return nil
}
