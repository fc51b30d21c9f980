package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tidecartapp/tidecart/internal/models"
)

// SettingsStore reads storefront overrides managed outside the YAML file.
// Country tax rates edited by the admin live here and take precedence over
// the file-based defaults.
type SettingsStore struct {
	pool *pgxpool.Pool
}

func NewSettingsStore(pool *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

func (s *SettingsStore) CountryTaxRates(ctx context.Context) ([]models.CountryTaxRate, error) {
	query := `
		SELECT country_code, rate::text, active
		FROM country_tax_rates
		ORDER BY country_code
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []models.CountryTaxRate
	for rows.Next() {
		var (
			entry models.CountryTaxRate
			raw   string
		)
		if err := rows.Scan(&entry.CountryCode, &raw, &entry.Active); err != nil {
			return nil, err
		}
		if entry.Rate, err = decimal.NewFromString(raw); err != nil {
			return nil, fmt.Errorf("bad tax rate %q for %s: %w", raw, entry.CountryCode, err)
		}
		rates = append(rates, entry)
	}

	return rates, rows.Err()
}

func (s *SettingsStore) UpsertCountryTaxRate(ctx context.Context, entry models.CountryTaxRate) error {
	query := `
		INSERT INTO country_tax_rates (country_code, rate, active)
		VALUES ($1, $2, $3)
		ON CONFLICT (country_code)
		DO UPDATE SET rate = EXCLUDED.rate, active = EXCLUDED.active
	`
	_, err := s.pool.Exec(ctx, query, entry.CountryCode, entry.Rate.String(), entry.Active)
	return err
}
