package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/juju/errors"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/wfcompiler/store"
	"github.com/warriorguo/wfcompiler/types"
)

var (
	_ store.Store  = &pgStore{}
	_ store.Closer = &pgStore{}

	tablePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

const defaultTable = "wfc_artifacts"

// Config holds the connection settings of the artifact cache database.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // disable, require, verify-ca, verify-full
	// Table defaults to wfc_artifacts
	Table string
}

func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "wfcompiler",
		SSLMode:  "disable",
		Table:    defaultTable,
	}
}

// FromOptions fills the defaults in for the fields opts leaves empty.
func FromOptions(opts *types.PostgresConfig) *Config {
	c := DefaultConfig()
	if opts == nil {
		return c
	}
	if opts.Host != "" {
		c.Host = opts.Host
	}
	if opts.Port != 0 {
		c.Port = opts.Port
	}
	if opts.User != "" {
		c.User = opts.User
	}
	if opts.Password != "" {
		c.Password = opts.Password
	}
	if opts.Database != "" {
		c.Database = opts.Database
	}
	if opts.SSLMode != "" {
		c.SSLMode = opts.SSLMode
	}
	return c
}

// pgStore keeps cached artifacts in one table keyed by (prefix, key).
type pgStore struct {
	db    *sql.DB
	table string
}

// NewPostgresStore connects, pings and makes sure the table exists.
func NewPostgresStore(ctx context.Context, config *Config) (store.Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}

	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, errors.Annotatef(err, "failed to open postgres connection")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Annotatef(err, "failed to ping postgres at %s:%d", config.Host, config.Port)
	}

	s, err := NewPostgresStoreWithDB(ctx, db, config.Table)
	if err != nil {
		db.Close()
		return nil, errors.Trace(err)
	}
	log.Debugf("artifact cache on postgres %s:%d/%s table %s", config.Host, config.Port, config.Database, s.(*pgStore).table)
	return s, nil
}

// NewPostgresStoreWithDB wraps an existing connection pool.
func NewPostgresStoreWithDB(ctx context.Context, db *sql.DB, table string) (store.Store, error) {
	if db == nil {
		return nil, errors.BadRequestf("db cannot be nil")
	}
	if table == "" {
		table = defaultTable
	}
	if !tablePattern.MatchString(table) {
		return nil, errors.NotValidf("table name %q", table)
	}

	s := &pgStore{db: db, table: table}
	if err := s.initTable(ctx); err != nil {
		return nil, errors.Annotatef(err, "failed to initialize table")
	}
	return s, nil
}

func (p *pgStore) initTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			prefix VARCHAR(255) NOT NULL,
			key VARCHAR(255) NOT NULL,
			value BYTEA,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (prefix, key)
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_updated_at ON %[1]s(updated_at);
	`, p.table)

	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return errors.Annotatef(err, "failed to create table %s", p.table)
	}
	return nil
}

func (p *pgStore) Get(ctx context.Context, prefix, key string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE prefix = $1 AND key = $2`, p.table)

	var value []byte
	err := p.db.QueryRowContext(ctx, query, prefix, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Annotatef(err, "failed to get value for prefix=%s, key=%s", prefix, key)
	}
	return value, nil
}

func (p *pgStore) Set(ctx context.Context, prefix, key string, value []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (prefix, key, value, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (prefix, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP
	`, p.table)

	if _, err := p.db.ExecContext(ctx, query, prefix, key, value); err != nil {
		return errors.Annotatef(err, "failed to set value for prefix=%s, key=%s", prefix, key)
	}
	return nil
}

func (p *pgStore) Remove(ctx context.Context, prefix, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE prefix = $1 AND key = $2`, p.table)

	if _, err := p.db.ExecContext(ctx, query, prefix, key); err != nil {
		return errors.Annotatef(err, "failed to remove value for prefix=%s, key=%s", prefix, key)
	}
	return nil
}

func (p *pgStore) List(ctx context.Context, prefix string, iterator func(key string) bool) error {
	query := fmt.Sprintf(`SELECT key FROM %s WHERE prefix = $1 ORDER BY key`, p.table)

	rows, err := p.db.QueryContext(ctx, query, prefix)
	if err != nil {
		return errors.Annotatef(err, "failed to list keys for prefix=%s", prefix)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return errors.Annotatef(err, "failed to scan key")
		}
		if !iterator(key) {
			break
		}
	}
	return errors.Annotatef(rows.Err(), "error iterating rows")
}

// Prune drops entries of prefix not written within maxAge.
func Prune(ctx context.Context, s store.Store, prefix string, maxAge time.Duration) (int64, error) {
	p, ok := s.(*pgStore)
	if !ok {
		return 0, errors.NotSupportedf("prune on %T", s)
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE prefix = $1 AND updated_at < $2`, p.table)
	res, err := p.db.ExecContext(ctx, query, prefix, time.Now().Add(-maxAge).UTC())
	if err != nil {
		return 0, errors.Annotatef(err, "failed to prune prefix=%s", prefix)
	}
	n, err := res.RowsAffected()
	return n, errors.Trace(err)
}

func (p *pgStore) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// DSN builds a PostgreSQL connection string from Config
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

var validSSLModes = map[string]bool{
	"disable":     true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.NotValidf("empty host")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.NotValidf("port %d", c.Port)
	}
	if c.User == "" {
		return errors.NotValidf("empty user")
	}
	if c.Database == "" {
		return errors.NotValidf("empty database")
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if !validSSLModes[c.SSLMode] {
		return errors.NotValidf("sslmode %s", c.SSLMode)
	}
	if c.Table == "" {
		c.Table = defaultTable
	}
	if !tablePattern.MatchString(c.Table) {
		return errors.NotValidf("table name %q", c.Table)
	}
	return nil
}

// ParseDSN parses a PostgreSQL connection string into a Config
// Format: "host=localhost port=5432 user=postgres password=secret dbname=wfcompiler sslmode=disable"
func ParseDSN(dsn string) (*Config, error) {
	config := DefaultConfig()

	for _, part := range strings.Fields(dsn) {
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		switch key {
		case "host":
			config.Host = value
		case "port":
			var port int
			if _, err := fmt.Sscanf(value, "%d", &port); err == nil {
				config.Port = port
			}
		case "user":
			config.User = value
		case "password":
			config.Password = value
		case "dbname":
			config.Database = value
		case "sslmode":
			config.SSLMode = value
		case "table":
			config.Table = value
		}
	}

	return config, config.Validate()
}
