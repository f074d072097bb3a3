package paymentevent

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lumenchat/billing-backend/pkg/enums"
)

// SubjectKind discriminates what a payment pays for.
type SubjectKind string

const (
	SubjectSubscription  SubjectKind = "subscription"
	SubjectTokenPurchase SubjectKind = "token_purchase"
)

// Subject identifies who and what a payment event applies to, decoded from
// the opaque passthrough fields the providers echo back.
type Subject struct {
	Kind         SubjectKind
	UserID       uuid.UUID
	BillingCycle enums.BillingCycle
	PackageID    string
}

// Passthrough field formats. These are versioned so a future change to the
// encoding can coexist with in-flight checkouts.
//
//	custom_data1: "user_<uuid>"
//	custom_data2: "tokens_<packageId>"  (token purchase)
//	              "<billingCycle>"      (subscription)
//	order_id:     "tok1:<uuid>:<packageId>:<nonce>"
const (
	userMarkerPrefix  = "user_"
	tokenMarkerPrefix = "tokens_"
	orderIDVersion    = "tok1"
	orderIDSeparator  = ":"
)

// EncodeCustomData renders a subject into the two passthrough fields sent at
// checkout-initiation time.
func EncodeCustomData(s Subject) (data1, data2 string) {
	data1 = userMarkerPrefix + s.UserID.String()
	if s.Kind == SubjectTokenPurchase {
		data2 = tokenMarkerPrefix + s.PackageID
		return data1, data2
	}
	return data1, s.BillingCycle.String()
}

// DecodeCustomData reconstructs a subject from the passthrough fields echoed
// back in a webhook. A failure here means the payment cannot be attributed to
// any user and must be rejected, never dropped.
func DecodeCustomData(data1, data2 string) (Subject, error) {
	if !strings.HasPrefix(data1, userMarkerPrefix) {
		return Subject{}, fmt.Errorf("custom data missing user marker: %q", data1)
	}
	userID, err := uuid.Parse(strings.TrimPrefix(data1, userMarkerPrefix))
	if err != nil {
		return Subject{}, fmt.Errorf("custom data user id is not a uuid: %q", data1)
	}

	if strings.HasPrefix(data2, tokenMarkerPrefix) {
		packageID := strings.TrimPrefix(data2, tokenMarkerPrefix)
		if packageID == "" {
			return Subject{}, fmt.Errorf("custom data token marker has empty package id: %q", data2)
		}
		return Subject{
			Kind:      SubjectTokenPurchase,
			UserID:    userID,
			PackageID: packageID,
		}, nil
	}

	cycle, err := enums.ParseBillingCycle(data2)
	if err != nil {
		return Subject{}, fmt.Errorf("custom data carries neither token marker nor billing cycle: %q", data2)
	}
	return Subject{
		Kind:         SubjectSubscription,
		UserID:       userID,
		BillingCycle: cycle,
	}, nil
}

// EncodeOrderID renders a token-purchase order id carried through the IPN
// provider's order_id field. The nonce keeps distinct checkouts for the same
// user and package from colliding.
func EncodeOrderID(userID uuid.UUID, packageID string) string {
	nonce := uuid.NewString()[:8]
	return strings.Join([]string{orderIDVersion, userID.String(), packageID, nonce}, orderIDSeparator)
}

// IsTokenOrderID reports whether an order id carries the token-purchase
// marker prefix.
func IsTokenOrderID(orderID string) bool {
	return strings.HasPrefix(orderID, orderIDVersion+orderIDSeparator)
}

// DecodeOrderID reconstructs a token-purchase subject from a marked order id.
func DecodeOrderID(orderID string) (Subject, error) {
	parts := strings.Split(orderID, orderIDSeparator)
	if len(parts) != 4 || parts[0] != orderIDVersion {
		return Subject{}, fmt.Errorf("malformed token order id: %q", orderID)
	}
	userID, err := uuid.Parse(parts[1])
	if err != nil {
		return Subject{}, fmt.Errorf("token order id user id is not a uuid: %q", orderID)
	}
	if parts[2] == "" {
		return Subject{}, fmt.Errorf("token order id has empty package id: %q", orderID)
	}
	return Subject{
		Kind:      SubjectTokenPurchase,
		UserID:    userID,
		PackageID: parts[2],
	}, nil
}
