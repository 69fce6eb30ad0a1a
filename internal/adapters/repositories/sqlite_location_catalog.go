package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"route-run-service/internal/domain"
)

// SQLite-backed implementation of the LocationCatalog port.
type SqliteLocationCatalog struct{ DB *sql.DB }

func NewSqliteLocationCatalog(db *sql.DB) *SqliteLocationCatalog {
	return &SqliteLocationCatalog{DB: db}
}

func (s *SqliteLocationCatalog) GetLocationByID(ctx context.Context, id int64) (*domain.Location, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite location catalog: DB is nil")
	}

	loc := &domain.Location{ID: id}
	err := s.DB.QueryRowContext(ctx, `
	SELECT name, address
	FROM locations
	WHERE location_id = ?;
	`, id).Scan(&loc.Name, &loc.Address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get location: query locations table: %w", err)
	}

	return loc, nil
}

func (s *SqliteLocationCatalog) ListMachinesForLocation(ctx context.Context, locationID int64) ([]domain.Machine, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite location catalog: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT machine_id, type, label, cost_per_play
	FROM machines
	WHERE location_id = ?
	ORDER BY machine_id;
	`, locationID)
	if err != nil {
		return nil, fmt.Errorf("list machines: query machines table: %w", err)
	}
	defer rows.Close()

	machines := make([]domain.Machine, 0, 8)
	for rows.Next() {
		m := domain.Machine{LocationID: locationID}
		if err := rows.Scan(&m.ID, &m.Type, &m.Label, &m.CostPerPlay); err != nil {
			return nil, fmt.Errorf("list machines: scan row: %w", err)
		}
		machines = append(machines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list machines: row iteration: %w", err)
	}

	return machines, nil
}

func (s *SqliteLocationCatalog) ResolveNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite location catalog: DB is nil")
	}
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}

	seen := map[int64]struct{}{}
	uniq := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(uniq)), ",")
	args := make([]any, 0, len(uniq))
	for _, id := range uniq {
		args = append(args, id)
	}

	q := fmt.Sprintf(`
	SELECT location_id, name
	FROM locations
	WHERE location_id IN (%s);
	`, placeholders)

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve names: query locations table: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]string, len(uniq))
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("resolve names: scan row: %w", err)
		}
		out[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("resolve names: row iteration: %w", err)
	}

	return out, nil
}
