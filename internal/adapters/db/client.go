package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const (
	maxOpenConnections = 20
	maxIdleConnections = 5
	queryTimeout       = 10 * time.Second
)

var ErrNoRows = sql.ErrNoRows

// Client wraps sqlx with goqu query building for the Postgres store.
type Client struct {
	db   *sqlx.DB
	Goqu *goqu.Database
}

func New(dsn string) (*Client, error) {
	dialectOptions := postgres.DialectOptions()
	goqu.RegisterDialect("default", dialectOptions)
	goqu.SetDefaultPrepared(true)

	sqlxDB, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlxDB.SetMaxOpenConns(maxOpenConnections)
	sqlxDB.SetMaxIdleConns(maxIdleConnections)
	sqlxDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := sqlxDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Client{db: sqlxDB, Goqu: goqu.New("default", sqlxDB)}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Select(ctx context.Context, dest any, query *goqu.SelectDataset) error {
	q, args, err := query.ToSQL()
	if err != nil {
		return fmt.Errorf("unable to build query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if err := c.db.SelectContext(ctx, dest, q, args...); err != nil {
		return fmt.Errorf("unable to execute select query: %w", err)
	}
	return nil
}

func (c *Client) QueryRow(ctx context.Context, dest any, query *goqu.SelectDataset) error {
	q, args, err := query.ToSQL()
	if err != nil {
		return fmt.Errorf("unable to build query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if err := c.db.QueryRowxContext(ctx, q, args...).StructScan(dest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoRows
		}
		return fmt.Errorf("unable to scan row: %w", err)
	}
	return nil
}

func (c *Client) Insert(ctx context.Context, query *goqu.InsertDataset) error {
	q, args, err := query.ToSQL()
	if err != nil {
		return fmt.Errorf("unable to build query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := c.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("unable to execute insert query: %w", err)
	}
	return nil
}

func (c *Client) Exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := c.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to execute query: %w", err)
	}
	return res, nil
}
