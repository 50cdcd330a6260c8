package delivery

import (
	"time"

	"gp-connect/internal/models"
)

// DeriveStatus maps an assignment's timestamp pair to its delivery status.
// Delivery wins over pickup so a delivered assignment reads delivered even
// if the pickup stamp is somehow missing.
func DeriveStatus(pickupCompletedAt, deliveryCompletedAt *time.Time) string {
	switch {
	case deliveryCompletedAt != nil:
		return models.DeliveryStatusDelivered
	case pickupCompletedAt != nil:
		return models.DeliveryStatusInTransit
	default:
		return models.DeliveryStatusPending
	}
}

// AssignmentStatus is DeriveStatus applied to an assignment row.
func AssignmentStatus(a *models.Assignment) string {
	return DeriveStatus(a.PickupCompletedAt, a.DeliveryCompletedAt)
}
