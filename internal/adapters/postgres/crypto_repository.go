package postgres

import (
	"context"
	"fmt"
	"otcsettle/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	insertCryptoRemittanceQuery = `
		insert into crypto_remittances (
			id, provider_order_id, provider_name, market, side, type,
			amount, price, executed_price, executed_quantity, status, created_at
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`

	// the state guard keeps an order from being settled twice by concurrent runs
	settlePendingOrderQuery = `
		update crypto_orders
		set state = $2, crypto_remittance_id = $3, updated_at = now()
		where id = $1 and state = 'PENDING';
	`
)

type CryptoOrderRepository struct {
	pool *pgxpool.Pool
}

func (r *CryptoOrderRepository) FindPendingByCurrency(ctx context.Context, currencyID int64, systems []string) ([]domain.CryptoOrder, error) {
	const q = `
		select id, system, base_currency_id, amount, state, conversion_id, crypto_remittance_id
		from crypto_orders
		where state = 'PENDING' and base_currency_id = $1 and system = any($2)
		order by created_at, id;
	`

	rows, err := r.pool.Query(ctx, q, currencyID, systems)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending crypto orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.CryptoOrder, 0, 16)
	for rows.Next() {
		var o domain.CryptoOrder
		if err = rows.Scan(&o.ID, &o.System, &o.BaseCurrencyID, &o.Amount, &o.State, &o.ConversionID, &o.CryptoRemittanceID); err != nil {
			return nil, fmt.Errorf("failed to scan crypto order: %w", err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating crypto orders: %w", err)
	}
	return orders, nil
}

func (r *CryptoOrderRepository) Create(ctx context.Context, o *domain.CryptoOrder) error {
	const q = `
		insert into crypto_orders (id, system, base_currency_id, amount, state, conversion_id, crypto_remittance_id)
		values ($1, $2, $3, $4, $5, $6, $7);
	`
	if _, err := r.pool.Exec(ctx, q, o.ID, o.System, o.BaseCurrencyID, o.Amount, o.State, o.ConversionID, o.CryptoRemittanceID); err != nil {
		return fmt.Errorf("failed to insert crypto order %s: %w", o.ID, err)
	}
	return nil
}

func (r *CryptoOrderRepository) Update(ctx context.Context, o *domain.CryptoOrder) error {
	const q = `
		update crypto_orders
		set state = $2, crypto_remittance_id = $3, updated_at = now()
		where id = $1;
	`
	tag, err := r.pool.Exec(ctx, q, o.ID, o.State, o.CryptoRemittanceID)
	if err != nil {
		return fmt.Errorf("failed to update crypto order %s: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("crypto order %s does not exist", o.ID)
	}
	return nil
}

// SettlePending moves every order out of PENDING in one transaction. Either all of them change
// or none does.
func (r *CryptoOrderRepository) SettlePending(ctx context.Context, orders []domain.CryptoOrder) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err = settlePending(ctx, tx, orders); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func settlePending(ctx context.Context, tx pgx.Tx, orders []domain.CryptoOrder) error {
	for i := range orders {
		o := &orders[i]
		tag, err := tx.Exec(ctx, settlePendingOrderQuery, o.ID, o.State, o.CryptoRemittanceID)
		if err != nil {
			return fmt.Errorf("failed to update crypto order %s: %w", o.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("crypto order %s is no longer pending", o.ID)
		}
	}
	return nil
}

func NewCryptoOrderRepository(pool *pgxpool.Pool) *CryptoOrderRepository {
	return &CryptoOrderRepository{pool: pool}
}

type CryptoRemittanceRepository struct {
	pool *pgxpool.Pool
}

func (r *CryptoRemittanceRepository) Create(ctx context.Context, cr *domain.CryptoRemittance) error {
	_, err := r.pool.Exec(ctx, insertCryptoRemittanceQuery,
		cr.ID, cr.ProviderOrderID, cr.ProviderName, cr.Market, cr.Side, cr.Type,
		cr.Amount, cr.Price, cr.ExecutedPrice, cr.ExecutedQuantity, cr.Status, cr.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert crypto remittance %s: %w", cr.ID, err)
	}
	return nil
}

// CreateWithOrders stores a placed remittance together with the orders it settles. Nothing is
// written unless every order is still pending.
func (r *CryptoRemittanceRepository) CreateWithOrders(ctx context.Context, cr *domain.CryptoRemittance, orders []domain.CryptoOrder) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, insertCryptoRemittanceQuery,
		cr.ID, cr.ProviderOrderID, cr.ProviderName, cr.Market, cr.Side, cr.Type,
		cr.Amount, cr.Price, cr.ExecutedPrice, cr.ExecutedQuantity, cr.Status, cr.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert crypto remittance %s: %w", cr.ID, err)
	}
	if err = settlePending(ctx, tx, orders); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *CryptoRemittanceRepository) Update(ctx context.Context, cr *domain.CryptoRemittance) error {
	const q = `
		update crypto_remittances
		set status = $2, executed_price = $3, executed_quantity = $4, updated_at = now()
		where id = $1;
	`
	tag, err := r.pool.Exec(ctx, q, cr.ID, cr.Status, cr.ExecutedPrice, cr.ExecutedQuantity)
	if err != nil {
		return fmt.Errorf("failed to update crypto remittance %s: %w", cr.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("crypto remittance %s does not exist", cr.ID)
	}
	return nil
}

func NewCryptoRemittanceRepository(pool *pgxpool.Pool) *CryptoRemittanceRepository {
	return &CryptoRemittanceRepository{pool: pool}
}
