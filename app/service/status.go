package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/courtside-solutions/ms-go-booking-payments/app/entity"
	"github.com/courtside-solutions/ms-go-booking-payments/app/provider"
)

const (
	providerName          = "xendit"
	referencePrefix       = "booking_"
	redirectActionType    = "REDIRECT_CUSTOMER"
	defaultProviderStatus = "REQUIRES_ACTION"
	unknownActionType     = "UNKNOWN"
)

// MapProviderStatus folds the provider's status vocabulary onto the internal
// state set. Unrecognized statuses are treated as still awaiting the payer so
// a later webhook or reconcile pass can settle them.
func MapProviderStatus(status string) entity.PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "REQUIRES_ACTION", "PENDING":
		return entity.PaymentStatusPendingUserAction
	case "SUCCEEDED", "COMPLETED", "PAID", "SETTLED":
		return entity.PaymentStatusPaid
	case "FAILED", "CANCELLED", "CANCELED":
		return entity.PaymentStatusFailed
	case "EXPIRED":
		return entity.PaymentStatusExpired
	default:
		return entity.PaymentStatusPendingUserAction
	}
}

func BuildReferenceID(orderID string) string {
	return referencePrefix + orderID
}

// ParseOrderIDFromReference inverts BuildReferenceID. References without the
// prefix pass through unchanged so externally minted ids still resolve.
func ParseOrderIDFromReference(referenceID string) string {
	return strings.TrimPrefix(referenceID, referencePrefix)
}

func normalizeProviderStatus(status string) string {
	trimmed := strings.TrimSpace(status)
	if trimmed == "" {
		return defaultProviderStatus
	}
	return trimmed
}

func actionValueToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return fmt.Sprintf("%t", v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}

// normalizeActions drops actions whose value collapses to empty so consumers
// only ever see instructions they can act on.
func normalizeActions(actions []provider.Action) []entity.PaymentAction {
	normalized := make([]entity.PaymentAction, 0, len(actions))
	for _, action := range actions {
		value := actionValueToString(action.Value)
		if value == "" {
			continue
		}

		actionType := strings.TrimSpace(action.Type)
		if actionType == "" {
			actionType = unknownActionType
		}

		var descriptor *string
		if d := strings.TrimSpace(action.Descriptor); d != "" {
			descriptor = &d
		}

		normalized = append(normalized, entity.PaymentAction{
			Type:       actionType,
			Descriptor: descriptor,
			Value:      value,
		})
	}
	return normalized
}

func redirectURL(actions []entity.PaymentAction) string {
	for _, action := range actions {
		if action.Type == redirectActionType {
			return action.Value
		}
	}
	return ""
}

func parseExpiry(value string) *time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}

	parsed, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil
	}
	utc := parsed.UTC()
	return &utc
}
