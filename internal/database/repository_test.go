package database

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"arbsim/internal/model"
)

var (
	pool *pgxpool.Pool
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	// Define the PostgreSQL container request
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpassword",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}

	// Create and start the PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		log.Fatalf("could not start postgres container: %s", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Fatalf("could not stop postgres container: %s", err)
		}
	}()

	// Get the container's mapped port and host
	host, err := pgContainer.Host(ctx)
	if err != nil {
		log.Fatalf("could not get container host: %s", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		log.Fatalf("could not get mapped port: %s", err)
	}

	// Create the database connection string
	connStr := "postgres://testuser:testpassword@" + host + ":" + port.Port() + "/testdb"

	// Create a new connection pool
	pool, err = pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("could not connect to database: %s", err)
	}
	defer pool.Close()

	// Create the trades table through the repository's own migration
	repo := &PostgresRepository{Pool: pool}
	if err := repo.Migrate(ctx); err != nil {
		log.Fatalf("could not create table: %s", err)
	}

	// Run the tests
	code := m.Run()

	os.Exit(code)
}

func TestPostgresRepository_LogTrade(t *testing.T) {
	ctx := context.Background()
	repo := &PostgresRepository{Pool: pool}

	trade := model.Trade{
		Ts:        time.Now(),
		BuyVenue:  "COINBASE",
		SellVenue: "BITSTAMP",
		BuyPrice:  1.30,
		SellPrice: 1.306,
		USDSpent:  100.0,
		XRPBought: 76.92307692,
		FeeUSDEst: 0.3,
		PnLUSD:    0.31089744,
	}

	err := repo.LogTrade(ctx, trade)
	require.NoError(t, err)

	// Verify the trade was logged
	var logged model.Trade
	err = pool.QueryRow(ctx, "SELECT buy_venue, sell_venue, buy_price, sell_price, usd_spent, xrp_bought, fee_usd_est, pnl_usd FROM trades WHERE buy_venue = 'COINBASE'").Scan(
		&logged.BuyVenue, &logged.SellVenue, &logged.BuyPrice, &logged.SellPrice, &logged.USDSpent, &logged.XRPBought, &logged.FeeUSDEst, &logged.PnLUSD,
	)
	require.NoError(t, err)
	assert.Equal(t, trade.BuyVenue, logged.BuyVenue)
	assert.Equal(t, trade.SellVenue, logged.SellVenue)
	assert.InDelta(t, trade.BuyPrice, logged.BuyPrice, 1e-8)
	assert.InDelta(t, trade.PnLUSD, logged.PnLUSD, 1e-8)
}
