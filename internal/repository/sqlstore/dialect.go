package sqlstore

import (
	"fmt"
	"strconv"
	"strings"

	// Registers the "postgres" driver.
	_ "github.com/lib/pq"
	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// dialect hides placeholder differences between drivers.
type dialect struct {
	driver string
}

func newDialect(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
		return dialect{driver: driver}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported sql driver %q", driver)
	}
}

// rebind rewrites "?" placeholders as "$n" for PostgreSQL.
func (d dialect) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}

	var (
		b strings.Builder
		n int
	)

	b.Grow(len(query) + 8)

	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)

			continue
		}

		n++

		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}

	return b.String()
}
