// Package graphdb implements the Backend interface over PostgreSQL with
// an Apache-AGE-style Cypher wrapper.
//
// Scripts are executed as
//
//	SELECT * FROM cypher('<graph>', $$ <script> $$) AS (<cols>)
//
// The parameter bridge in lib/pq cannot carry the full tagged-value type
// system the graph type system needs, so values are inlined as escaped
// Cypher literals rather than bind parameters. This package's parameter
// inlining escapes strings through escapeCypherString. The ingest
// package's edge-materialization scripts quote their literals with its
// own cypherQuote, which applies the same escaping.
package graphdb

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/cortexdb/query-core/internal/cortexlog"
)

// GraphName is the AGE graph this backend's wrapper queries target.
const GraphName = "cortex_graph"

// Config holds the PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Backend is the graph-backend Backend implementation.
type Backend struct {
	db  *sql.DB
	log interface {
		Infof(format string, args ...interface{})
		Errorf(format string, args ...interface{})
	}
}

// New opens a PostgreSQL connection and configures the pool.
func New(cfg Config) (*Backend, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	log := cortexlog.For("backend.graphdb")
	log.Infof("connecting to PostgreSQL at %s:%s", cfg.Host, cfg.Port)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Errorf("failed to open database: %v", err)
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Errorf("failed to ping database: %v", err)
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(100)
	db.SetConnMaxLifetime(time.Hour)

	return &Backend{db: db, log: log}, nil
}

// NewWithDB wraps an already-open *sql.DB, useful for tests against a
// lightweight fake driver.
func NewWithDB(db *sql.DB) *Backend {
	return &Backend{db: db, log: cortexlog.For("backend.graphdb")}
}

func (b *Backend) Close() error {
	return b.db.Close()
}

// wrapCypher produces the SELECT * FROM cypher(...) AS (...) wrapper
// text; the output column list comes from the script's RETURN clause
// aliases.
func wrapCypher(script string, columns []string) string {
	var b strings.Builder
	b.WriteString("SELECT * FROM cypher('")
	b.WriteString(GraphName)
	b.WriteString("', $$ ")
	b.WriteString(script)
	b.WriteString(" $$) AS (")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col)
		b.WriteString(" agtype")
	}
	b.WriteString(")")
	return b.String()
}

// escapeCypherString escapes a string for inlining as a Cypher literal;
// inlineParams uses it for every string value this backend inlines.
func escapeCypherString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
