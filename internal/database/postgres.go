package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"arbsim/internal/config"
	"arbsim/internal/model"
)

// PostgresRepository persists executed trades to Postgres.
type PostgresRepository struct {
	Pool *pgxpool.Pool
}

// NewPostgresRepository connects a pool using the given settings.
func NewPostgresRepository(ctx context.Context, cfg config.DatabaseConfig) (*PostgresRepository, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &PostgresRepository{Pool: pool}, nil
}

// Migrate creates the trades table if it does not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	const createTableSQL = `
	CREATE TABLE IF NOT EXISTS trades (
		id SERIAL PRIMARY KEY,
		ts TIMESTAMPTZ NOT NULL,
		buy_venue VARCHAR(50) NOT NULL,
		sell_venue VARCHAR(50) NOT NULL,
		buy_price NUMERIC(20, 8) NOT NULL,
		sell_price NUMERIC(20, 8) NOT NULL,
		usd_spent NUMERIC(20, 8) NOT NULL,
		xrp_bought NUMERIC(20, 8) NOT NULL,
		fee_usd_est NUMERIC(20, 8) NOT NULL,
		pnl_usd NUMERIC(20, 8) NOT NULL
	);`
	_, err := r.Pool.Exec(ctx, createTableSQL)
	return err
}

// LogTrade inserts one executed trade row.
func (r *PostgresRepository) LogTrade(ctx context.Context, trade model.Trade) error {
	const insertSQL = `
	INSERT INTO trades (
		ts, buy_venue, sell_venue, buy_price, sell_price,
		usd_spent, xrp_bought, fee_usd_est, pnl_usd
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.Pool.Exec(ctx, insertSQL,
		trade.Ts, trade.BuyVenue, trade.SellVenue, trade.BuyPrice, trade.SellPrice,
		trade.USDSpent, trade.XRPBought, trade.FeeUSDEst, trade.PnLUSD,
	)
	return err
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() {
	r.Pool.Close()
}
