package sql

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/syssam/dbextra/dialect"
	"github.com/syssam/dbextra/profiler"
)

// timeLayout renders time values inside literals.
const timeLayout = "2006-01-02 15:04:05.999999"

// Platform renders trusted Go values as SQL literals of one dialect. The
// literals are meant for logs and are never sent to the database.
type Platform struct {
	dialect string
}

// PlatformFor returns the Platform of the given dialect. Unknown dialects
// get the quoting of standard SQL.
func PlatformFor(name string) Platform {
	return Platform{dialect: name}
}

var _ profiler.Quoter = Platform{}

// Name returns the human readable name of the platform.
func (p Platform) Name() string { return dialect.Title(p.dialect) }

// QuoteTrustedValue implements profiler.Quoter. Every non-null value is
// rendered as a quoted string literal, numbers included.
func (p Platform) QuoteTrustedValue(v any) string {
	if dv, ok := v.(driver.Valuer); ok {
		var err error
		if v, err = dv.Value(); err != nil {
			return "NULL"
		}
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "NULL"
		}
		return p.QuoteTrustedValue(rv.Elem().Interface())
	}
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return p.quoteString(v)
	case []byte:
		return p.quoteString(string(v))
	case bool:
		return p.quoteString(p.formatBool(v))
	case int:
		return p.quoteString(strconv.Itoa(v))
	case int64:
		return p.quoteString(strconv.FormatInt(v, 10))
	case float64:
		return p.quoteString(strconv.FormatFloat(v, 'f', -1, 64))
	case float32:
		return p.quoteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	case time.Time:
		return p.quoteString(v.Format(timeLayout))
	case fmt.Stringer:
		return p.quoteString(v.String())
	}
	return p.quoteString(fmt.Sprint(v))
}

func (p Platform) formatBool(b bool) string {
	if p.dialect == dialect.Postgres {
		return strconv.FormatBool(b)
	}
	if b {
		return "1"
	}
	return "0"
}

func (p Platform) quoteString(s string) string {
	switch p.dialect {
	case dialect.Postgres:
		return strings.TrimLeft(pq.QuoteLiteral(s), " ")
	case dialect.MySQL:
		return "'" + escapeStringValue(s) + "'"
	default:
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
}

// escapeStringValue escapes a string value for safe use in MySQL literals.
// It escapes both single quotes (by doubling) and backslashes.
func escapeStringValue(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	// Escape backslashes first, then single quotes
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return s
}
