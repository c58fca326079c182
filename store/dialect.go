package store

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	_ "github.com/lib/pq"
	go_ora "github.com/sijms/go-ora/v2"
	"github.com/use-agent/serpcheck/config"
)

// Dialect captures what differs between the two stores: driver name,
// placeholder style and the name of the timestamp column.
type Dialect struct {
	Driver      string
	TimeColumn  string
	Placeholder func(n int) string
	recent      string
}

// Postgres uses positional $n placeholders and a "timestamp" column.
var Postgres = Dialect{
	Driver:      "postgres",
	TimeColumn:  "timestamp",
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	recent: `SELECT test_name, status, details, timestamp
		FROM test_results
		ORDER BY timestamp DESC
		LIMIT $1`,
}

// Oracle uses numbered :n placeholders and a "test_time" column.
var Oracle = Dialect{
	Driver:      "oracle",
	TimeColumn:  "test_time",
	Placeholder: func(n int) string { return ":" + strconv.Itoa(n) },
	recent: `SELECT test_name, status, details, test_time
		FROM (
			SELECT test_name, status, details, test_time
			FROM test_results
			ORDER BY test_time DESC
		)
		WHERE ROWNUM <= :1`,
}

// InsertQuery is the logical insert of (name, status, details).
func (d Dialect) InsertQuery() string {
	return fmt.Sprintf("INSERT INTO test_results (test_name, status, details) VALUES (%s, %s, %s)",
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3))
}

// RecentQuery selects the newest rows first, bounded by one parameter.
func (d Dialect) RecentQuery() string { return d.recent }

// AllQuery selects every row oldest first.
func (d Dialect) AllQuery() string {
	return fmt.Sprintf("SELECT test_name, status, details, %[1]s FROM test_results ORDER BY %[1]s", d.TimeColumn)
}

// PostgresDSN builds a lib/pq connection URL.
func PostgresDSN(cfg config.PrimaryConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.DBName,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	return u.String()
}

// OracleDSN builds a go-ora connection URL.
func OracleDSN(cfg config.SecondaryConfig) string {
	return go_ora.BuildUrl(cfg.Host, cfg.Port, cfg.Service, cfg.User, cfg.Password, nil)
}

// NewPrimary returns the PostgreSQL store.
func NewPrimary(cfg config.PrimaryConfig) *SQLStore {
	return New("primary", Postgres, PostgresDSN(cfg), nil)
}

// NewSecondary returns the Oracle store.
func NewSecondary(cfg config.SecondaryConfig) *SQLStore {
	return New("secondary", Oracle, OracleDSN(cfg), nil)
}
