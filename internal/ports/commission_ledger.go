package ports

import (
	"context"

	"route-run-service/internal/domain"
)

// Port: the ledger of commission periods owed to location owners.
type CommissionLedger interface {
	// Return the single pending (unpaid) commission for a location, most
	// recent period first, or (nil, nil) when none is pending.
	FindPendingCommission(ctx context.Context, locationID int64) (*domain.Commission, error)

	// Mark one commission period as paid.
	MarkCommissionPaid(ctx context.Context, id int64) error
}
