package profiler

import (
	"cmp"
	"database/sql"
	"database/sql/driver"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Quoter renders a trusted scalar as a dialect-correct SQL literal. The result
// is meant for display and is never sent to the database.
type Quoter interface {
	QuoteTrustedValue(v any) string
}

// QuoterFunc adapts a function to the Quoter interface.
type QuoterFunc func(v any) string

// QuoteTrustedValue calls f(v).
func (f QuoterFunc) QuoteTrustedValue(v any) string { return f(v) }

// Inline replaces every ":name" placeholder of query with the literal form of
// the value bound to name. Nil values become NULL, everything else goes
// through q. Longer names are substituted first so ":identifier" is never
// clobbered by the value of ":id".
func Inline(query string, params *Params, q Quoter) string {
	if q == nil || params.Len() == 0 {
		return query
	}
	names := params.Names()
	slices.SortStableFunc(names, func(a, b string) int {
		return cmp.Compare(len(b), len(a))
	})
	for _, name := range names {
		v, _ := params.Get(name)
		query = strings.ReplaceAll(query, ":"+name, literal(v, q))
	}
	return query
}

func literal(v any, q Quoter) string {
	if dv, ok := v.(driver.Valuer); ok {
		var err error
		if v, err = dv.Value(); err != nil {
			return "NULL"
		}
	}
	if isNull(v) {
		return "NULL"
	}
	return q.QuoteTrustedValue(v)
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

var (
	quotedLimit  = regexp.MustCompile(`LIMIT\s+'?(\d+)'?`)
	quotedOffset = regexp.MustCompile(`OFFSET\s+'?(\d+)'?`)
	backticked   = regexp.MustCompile("`([^`]+)`")
)

// unquoteLiterals undoes the quoting that Inline applies to LIMIT and OFFSET
// counts and strips MySQL backtick identifier quoting.
func unquoteLiterals(query string) string {
	query = quotedLimit.ReplaceAllString(query, "LIMIT $1")
	query = quotedOffset.ReplaceAllString(query, "OFFSET $1")
	return backticked.ReplaceAllString(query, "$1")
}

// Rebind converts the positional placeholders of query ("?" and "$N") into
// named ":pN" placeholders and binds args to them, so statements issued
// through database/sql can be inlined like named templates. Placeholders
// inside string literals are left alone. sql.NamedArg values keep their own
// name.
func Rebind(query string, args []any) *Statement {
	var (
		b  strings.Builder
		st lexState
		n  int
	)
	b.Grow(len(query) + len(args)*2)
	for i := 0; i < len(query); i++ {
		c := query[i]
		var prev byte
		if i > 0 {
			prev = query[i-1]
		}
		st = st.advance(c, prev)
		switch {
		case st.inString:
		case c == '?':
			n++
			b.WriteString(":p")
			b.WriteString(strconv.Itoa(n))
			continue
		case c == '$' && i+1 < len(query) && isDigit(query[i+1]):
			j := i + 1
			for j < len(query) && isDigit(query[j]) {
				j++
			}
			b.WriteString(":p")
			b.WriteString(query[i+1 : j])
			i = j - 1
			continue
		}
		b.WriteByte(c)
	}
	params := &Params{}
	for i, arg := range args {
		if na, ok := arg.(sql.NamedArg); ok {
			params.Set(na.Name, na.Value)
			continue
		}
		params.Set("p"+strconv.Itoa(i+1), arg)
	}
	return NewStatement(b.String(), params)
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }
