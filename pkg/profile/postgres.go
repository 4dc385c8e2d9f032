package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// insufficient_privilege: raised when row-level security rejects the statement.
const pgCodeInsufficientPrivilege = "42501"

// Config holds PostgreSQL connection settings for the profile store.
type Config struct {
	ConnectionString string        `env:"DIRECTAUTH_PG_CONN_URL,required"`
	MaxOpenConns     int32         `env:"DIRECTAUTH_PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns     int32         `env:"DIRECTAUTH_PG_MAX_IDLE_CONNS" envDefault:"5"`
	RetryAttempts    int           `env:"DIRECTAUTH_PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval    time.Duration `env:"DIRECTAUTH_PG_RETRY_INTERVAL" envDefault:"5s"`
}

// Connect establishes a PostgreSQL connection pool with linear backoff so
// transient startup races against the database do not kill the client.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	connConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDBConfig, err)
	}
	connConfig.MaxConns = cfg.MaxOpenConns
	connConfig.MinConns = cfg.MaxIdleConns

	for i := range cfg.RetryAttempts {
		pool, err := pgxpool.NewWithConfig(ctx, connConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		time.Sleep(time.Duration(i+1) * cfg.RetryInterval)
	}

	return nil, ErrFailedToOpenDBConnection
}

// DB is the subset of pgxpool.Pool the store uses, extracted so tests can
// substitute a mock connection.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore persists profile rows in the platform's users table.
type PostgresStore struct {
	db    DB
	table string
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithTable overrides the default "users" table name.
func WithTable(table string) PostgresOption {
	return func(s *PostgresStore) {
		if table != "" {
			s.table = table
		}
	}
}

// NewPostgresStore creates a store over the given connection.
func NewPostgresStore(db DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, table: "users"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	query := fmt.Sprintf(`SELECT id, email, first_name, last_name, display_name,
		avatar_url, theme_id, stripe_customer_id, role FROM %s WHERE id = $1`, s.table)

	var user User
	err := s.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.DisplayName,
		&user.AvatarURL, &user.ThemeID, &user.StripeCustomerID, &user.Role,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &user, nil
}

func (s *PostgresStore) Insert(ctx context.Context, user *User) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, email, first_name, last_name, display_name,
		avatar_url, theme_id, stripe_customer_id, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`, s.table)

	_, err := s.db.Exec(ctx, query,
		user.ID, user.Email, user.FirstName, user.LastName, user.DisplayName,
		user.AvatarURL, user.ThemeID, user.StripeCustomerID, user.Role,
	)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, params UpdateParams) error {
	if params.Empty() {
		return ErrEmptyUpdate
	}

	assignments := make([]string, 0, 7)
	args := make([]any, 0, 8)

	addField := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	addField("first_name", params.FirstName)
	addField("last_name", params.LastName)
	addField("display_name", params.DisplayName)
	addField("avatar_url", params.AvatarURL)
	addField("theme_id", params.ThemeID)
	addField("stripe_customer_id", params.StripeCustomerID)
	addField("role", params.Role)

	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		s.table, strings.Join(assignments, ", "), len(args))

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgCodeInsufficientPrivilege {
		return errors.Join(ErrPermissionDenied, err)
	}
	return err
}
