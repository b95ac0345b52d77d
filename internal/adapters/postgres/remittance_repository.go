package postgres

import (
	"context"
	"errors"
	"fmt"
	"otcsettle/internal/adapters"
	"otcsettle/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RemittanceRepository struct {
	pool *pgxpool.Pool
}

const remittanceColumns = `id, currency_id, system, provider, amount, status, send_date_code, receive_date_code, created_at, updated_at`

func scanRemittance(row pgx.Row, rm *domain.Remittance) error {
	return row.Scan(
		&rm.ID,
		&rm.CurrencyID,
		&rm.System,
		&rm.Provider,
		&rm.Amount,
		&rm.Status,
		&rm.SendDateCode,
		&rm.ReceiveDateCode,
		&rm.CreatedAt,
		&rm.UpdatedAt,
	)
}

func (r *RemittanceRepository) GetAllByStatus(ctx context.Context, status domain.RemittanceStatus, page adapters.Page) ([]domain.Remittance, error) {
	const q = `select ` + remittanceColumns + ` from remittances where status = $1 order by created_at, id limit $2 offset $3;`

	rows, err := r.pool.Query(ctx, q, status, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query remittances by status %q: %w", status, err)
	}
	defer rows.Close()

	remittances := make([]domain.Remittance, 0, page.Limit)
	for rows.Next() {
		var rm domain.Remittance
		if err = scanRemittance(rows, &rm); err != nil {
			return nil, fmt.Errorf("failed to scan remittance: %w", err)
		}
		remittances = append(remittances, rm)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating remittances: %w", err)
	}
	return remittances, nil
}

func (r *RemittanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Remittance, error) {
	const q = `select ` + remittanceColumns + ` from remittances where id = $1;`

	var rm domain.Remittance
	if err := scanRemittance(r.pool.QueryRow(ctx, q, id), &rm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRemittanceNotFound
		}
		return nil, fmt.Errorf("failed to select remittance %s: %w", id, err)
	}
	return &rm, nil
}

func (r *RemittanceRepository) Create(ctx context.Context, rm *domain.Remittance) error {
	const q = `
		insert into remittances (id, currency_id, system, provider, amount, status, send_date_code, receive_date_code)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning created_at, updated_at;
	`
	err := r.pool.QueryRow(ctx, q,
		rm.ID, rm.CurrencyID, rm.System, rm.Provider, rm.Amount, rm.Status, rm.SendDateCode, rm.ReceiveDateCode,
	).Scan(&rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert remittance %s: %w", rm.ID, err)
	}
	return nil
}

func (r *RemittanceRepository) Update(ctx context.Context, rm *domain.Remittance) error {
	const q = `
		update remittances
		set amount = $2, status = $3, send_date_code = $4, receive_date_code = $5, updated_at = now()
		where id = $1
		returning updated_at;
	`
	err := r.pool.QueryRow(ctx, q, rm.ID, rm.Amount, rm.Status, rm.SendDateCode, rm.ReceiveDateCode).Scan(&rm.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrRemittanceNotFound
		}
		return fmt.Errorf("failed to update remittance %s: %w", rm.ID, err)
	}
	return nil
}

func NewRemittanceRepository(pool *pgxpool.Pool) *RemittanceRepository {
	return &RemittanceRepository{pool: pool}
}

type RemittanceOrderRepository struct {
	pool *pgxpool.Pool
}

func (r *RemittanceOrderRepository) GetByRemittanceID(ctx context.Context, remittanceID uuid.UUID) ([]domain.RemittanceOrderRemittance, error) {
	const q = `
		select id, remittance_id, order_id, amount
		from remittance_order_remittances
		where remittance_id = $1
		order by order_id, id;
	`

	rows, err := r.pool.Query(ctx, q, remittanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order links of remittance %s: %w", remittanceID, err)
	}
	defer rows.Close()

	links := make([]domain.RemittanceOrderRemittance, 0, 8)
	for rows.Next() {
		var l domain.RemittanceOrderRemittance
		if err = rows.Scan(&l.ID, &l.RemittanceID, &l.OrderID, &l.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan order link: %w", err)
		}
		links = append(links, l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order links: %w", err)
	}
	return links, nil
}

func (r *RemittanceOrderRepository) Create(ctx context.Context, l *domain.RemittanceOrderRemittance) error {
	const q = `insert into remittance_order_remittances (id, remittance_id, order_id, amount) values ($1, $2, $3, $4);`
	if _, err := r.pool.Exec(ctx, q, l.ID, l.RemittanceID, l.OrderID, l.Amount); err != nil {
		return fmt.Errorf("failed to insert order link %s: %w", l.ID, err)
	}
	return nil
}

func (r *RemittanceOrderRepository) Update(ctx context.Context, l *domain.RemittanceOrderRemittance) error {
	const q = `update remittance_order_remittances set remittance_id = $2, amount = $3 where id = $1;`
	tag, err := r.pool.Exec(ctx, q, l.ID, l.RemittanceID, l.Amount)
	if err != nil {
		return fmt.Errorf("failed to update order link %s: %w", l.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order link %s does not exist", l.ID)
	}
	return nil
}

func NewRemittanceOrderRepository(pool *pgxpool.Pool) *RemittanceOrderRepository {
	return &RemittanceOrderRepository{pool: pool}
}
