package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"route-run-service/internal/domain"
)

// SQLite-backed implementation of the CommissionLedger port.
type SqliteCommissionLedger struct{ DB *sql.DB }

func NewSqliteCommissionLedger(db *sql.DB) *SqliteCommissionLedger {
	return &SqliteCommissionLedger{DB: db}
}

// Return the most recent unpaid commission period for a location, or nil.
func (s *SqliteCommissionLedger) FindPendingCommission(ctx context.Context, locationID int64) (*domain.Commission, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite commission ledger: DB is nil")
	}

	c := &domain.Commission{LocationID: locationID}
	var periodStart, periodEnd string
	err := s.DB.QueryRowContext(ctx, `
	SELECT commission_id, amount, period_start, period_end
	FROM commissions
	WHERE location_id = ? AND paid = 0
	ORDER BY period_end DESC
	LIMIT 1;
	`, locationID).Scan(&c.ID, &c.Amount, &periodStart, &periodEnd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find pending commission: query commissions table: %w", err)
	}

	if c.PeriodStart, err = parseStoredTime(periodStart); err != nil {
		return nil, fmt.Errorf("find pending commission: parse period_start: %w", err)
	}
	if c.PeriodEnd, err = parseStoredTime(periodEnd); err != nil {
		return nil, fmt.Errorf("find pending commission: parse period_end: %w", err)
	}

	return c, nil
}

func (s *SqliteCommissionLedger) MarkCommissionPaid(ctx context.Context, id int64) error {
	if s.DB == nil {
		return errors.New("sqlite commission ledger: DB is nil")
	}

	res, err := s.DB.ExecContext(ctx, `
	UPDATE commissions SET paid = 1 WHERE commission_id = ?;
	`, id)
	if err != nil {
		return fmt.Errorf("mark commission paid: update commissions table: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark commission paid: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark commission paid: commission %d not found", id)
	}

	return nil
}

// Seeds store dates as either date-only or RFC3339 strings.
func parseStoredTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
