package nowpayments

import "github.com/lumenchat/billing-backend/pkg/enums"

// Payment statuses as emitted in the IPN payment_status field.
const (
	StatusWaiting       = "waiting"
	StatusConfirming    = "confirming"
	StatusConfirmed     = "confirmed"
	StatusSending       = "sending"
	StatusPartiallyPaid = "partially_paid"
	StatusFinished      = "finished"
	StatusFailed        = "failed"
	StatusRefunded      = "refunded"
	StatusExpired       = "expired"
)

// MapPaymentStatus converts the provider's payment status onto the shared
// lifecycle. Unknown statuses return ok=false and are acknowledged without
// any state change, since the provider ships event types outside this
// system's interest.
func MapPaymentStatus(status string) (enums.PaymentLifecycle, bool) {
	switch status {
	case StatusFinished:
		return enums.PaymentLifecycleCompleted, true
	case StatusWaiting, StatusConfirming, StatusConfirmed, StatusSending, StatusPartiallyPaid:
		return enums.PaymentLifecyclePending, true
	case StatusFailed, StatusRefunded:
		return enums.PaymentLifecycleFailed, true
	case StatusExpired:
		return enums.PaymentLifecycleExpired, true
	default:
		return "", false
	}
}
