package postgres

import (
	"context"
	"errors"
	"fmt"
	"otcsettle/internal/domain"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CurrencyRepository struct {
	pool *pgxpool.Pool
}

const currencyColumns = `id, code, type, coalesce(country, '')`

func (r *CurrencyRepository) GetCurrencyByID(ctx context.Context, id int64) (*domain.Currency, error) {
	const q = `select ` + currencyColumns + ` from currencies where id = $1;`
	return r.getOne(ctx, q, id)
}

func (r *CurrencyRepository) GetCurrencyByCode(ctx context.Context, code string) (*domain.Currency, error) {
	const q = `select ` + currencyColumns + ` from currencies where code = $1;`
	return r.getOne(ctx, q, code)
}

func (r *CurrencyRepository) getOne(ctx context.Context, q string, arg any) (*domain.Currency, error) {
	var c domain.Currency
	if err := r.pool.QueryRow(ctx, q, arg).Scan(&c.ID, &c.Code, &c.Type, &c.Country); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select currency %v: %w", arg, err)
	}
	return &c, nil
}

func NewCurrencyRepository(pool *pgxpool.Pool) *CurrencyRepository {
	return &CurrencyRepository{pool: pool}
}

type ProviderRepository struct {
	pool *pgxpool.Pool
}

func (r *ProviderRepository) GetByName(ctx context.Context, name string) (*domain.Provider, error) {
	const q = `select id, name, active from providers where name = $1;`

	var p domain.Provider
	if err := r.pool.QueryRow(ctx, q, name).Scan(&p.ID, &p.Name, &p.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select provider %q: %w", name, err)
	}
	return &p, nil
}

func NewProviderRepository(pool *pgxpool.Pool) *ProviderRepository {
	return &ProviderRepository{pool: pool}
}

type HolidayRepository struct {
	pool *pgxpool.Pool
}

func (r *HolidayRepository) GetHolidayByDate(ctx context.Context, date time.Time, country string) (*domain.Holiday, error) {
	const q = `select date, country, name from holidays where date = $1 and country = $2;`

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	var h domain.Holiday
	if err := r.pool.QueryRow(ctx, q, day, country).Scan(&h.Date, &h.Country, &h.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select holiday for %s/%s: %w", date.Format(time.DateOnly), country, err)
	}
	return &h, nil
}

func NewHolidayRepository(pool *pgxpool.Pool) *HolidayRepository {
	return &HolidayRepository{pool: pool}
}

type FeatureSettingRepository struct {
	pool *pgxpool.Pool
}

func (r *FeatureSettingRepository) GetFeatureSettingByName(ctx context.Context, name string) (*domain.FeatureSetting, error) {
	const q = `select name, state from feature_settings where name = $1;`

	var f domain.FeatureSetting
	if err := r.pool.QueryRow(ctx, q, name).Scan(&f.Name, &f.State); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select feature setting %q: %w", name, err)
	}
	return &f, nil
}

func NewFeatureSettingRepository(pool *pgxpool.Pool) *FeatureSettingRepository {
	return &FeatureSettingRepository{pool: pool}
}
