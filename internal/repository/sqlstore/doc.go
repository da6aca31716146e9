// Package sqlstore implements a persistent alert manager on database/sql.
//
// Two dialects are supported: SQLite through modernc.org/sqlite and
// PostgreSQL through github.com/lib/pq. Queries are written with "?"
// placeholders and rebound for PostgreSQL. Event times are stored as Unix
// nanoseconds so both dialects order them identically.
package sqlstore
