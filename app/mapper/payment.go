package mapper

import (
	"time"

	"github.com/courtside-solutions/ms-go-booking-payments/app/entity"
	"github.com/courtside-solutions/ms-go-booking-payments/app/service"
	"github.com/courtside-solutions/ms-go-booking-payments/app/types"
)

func InitiateResultToResponse(item *service.InitiatePaymentResult) *types.InitiatePaymentResponse {
	if item == nil {
		return nil
	}

	return &types.InitiatePaymentResponse{
		OrderID:          item.OrderID,
		PaymentRequestID: item.PaymentRequestID,
		ReferenceID:      item.ReferenceID,
		Status:           string(item.Status),
		ProviderStatus:   item.ProviderStatus,
		Actions:          ActionsToResponse(item.Actions),
		ExpiresAt:        formatTime(item.ExpiresAt),
	}
}

func OrderSnapshotToResponse(item *service.OrderPaymentSnapshot) *types.OrderPaymentStatusResponse {
	if item == nil {
		return nil
	}

	return &types.OrderPaymentStatusResponse{
		OrderID:          item.OrderID,
		OrderStatus:      item.OrderStatus,
		PaymentStatus:    item.PaymentStatus,
		ProviderStatus:   item.ProviderStatus,
		PaymentRequestID: item.PaymentRequestID,
		ReferenceID:      item.ReferenceID,
		ChannelCode:      item.ChannelCode,
		Amount:           item.Amount,
		Currency:         item.Currency,
		Actions:          ActionsToResponse(item.Actions),
		ExpiresAt:        formatTime(item.ExpiresAt),
		UpdatedAt:        formatTime(item.UpdatedAt),
	}
}

func ActionsToResponse(items []entity.PaymentAction) []types.PaymentActionResponse {
	result := make([]types.PaymentActionResponse, 0, len(items))
	for _, item := range items {
		action := types.PaymentActionResponse{
			Type:  item.Type,
			Value: item.Value,
		}
		if item.Descriptor != nil {
			action.Descriptor = *item.Descriptor
		}
		result = append(result, action)
	}
	return result
}

func formatTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
