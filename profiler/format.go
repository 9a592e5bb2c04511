package profiler

import (
	"regexp"
	"strings"

	"github.com/dlclark/regexp2"
)

// Formatter lays SQL statements out on several indented lines for logs.
// The zero value uses the settings of DefaultFormatter.
type Formatter struct {
	// InlineColumns is the largest number of columns a projection may have
	// to stay on the SELECT line.
	InlineColumns int
	// InlineWidth is the exclusive length limit of a projection kept on the
	// SELECT line.
	InlineWidth int
	// Indent is one indentation unit.
	Indent string
}

// DefaultFormatter is used by Format and FormatIndent.
var DefaultFormatter = Formatter{
	InlineColumns: 2,
	InlineWidth:   100,
	Indent:        "    ",
}

// Format lays out query with DefaultFormatter.
func Format(query string) string {
	return DefaultFormatter.FormatIndent(query, 0)
}

// FormatIndent lays out query with DefaultFormatter, starting at the given
// indentation level.
func FormatIndent(query string, level int) string {
	return DefaultFormatter.FormatIndent(query, level)
}

// Format lays out query at indentation level 0.
func (f Formatter) Format(query string) string {
	return f.FormatIndent(query, 0)
}

// FormatIndent runs the formatting passes over query. The input is expected
// to be valid SQL without placeholders; fragments the passes cannot make
// sense of are left as they are.
func (f Formatter) FormatIndent(query string, level int) string {
	if f == (Formatter{}) {
		f = DefaultFormatter
	}
	if f.Indent == "" {
		f.Indent = DefaultFormatter.Indent
	}
	if level < 0 {
		level = 0
	}
	for _, p := range passes {
		query = p.apply(f, query, level)
	}
	return query
}

func (f Formatter) indent(level int) string {
	return strings.Repeat(f.Indent, level)
}

// pass is one rewrite over the whole statement text.
type pass struct {
	name  string
	apply func(f Formatter, s string, level int) string
}

// passes run in order. Each one sees the output of the previous. The list is
// filled by init because nestSubqueries recurses into FormatIndent.
var passes []pass

func init() {
	passes = []pass{
		{name: "collapseWhitespace", apply: collapseWhitespace},
		{name: "breakProjection", apply: breakProjection},
		{name: "breakClauses", apply: breakClauses},
		{name: "breakConjunctions", apply: breakConjunctions},
		{name: "alignJoinConditions", apply: alignJoinConditions},
		{name: "tightenInLists", apply: tightenInLists},
		{name: "nestSubqueries", apply: nestSubqueries},
	}
}

var whitespace = regexp.MustCompile(`\s+`)

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllLiteralString(s, " "))
}

// collapseWhitespace turns the statement into a single line: whitespace runs
// become one space and the space right inside parentheses is dropped.
// Post: no newlines, no leading or trailing space.
func collapseWhitespace(_ Formatter, s string, _ int) string {
	return tightenParens(collapse(s))
}

var projection = regexp.MustCompile(`(?is)(SELECT)\s+(.*?)(\s+FROM)`)

// breakProjection puts every column of a long SELECT list on its own line.
// Short lists stay on the SELECT line. Only a SELECT that starts the
// statement receives the statement indentation; nested ones are handled by
// nestSubqueries.
// Post: "SELECT\n<unit>col,\n<unit>col FROM" or "SELECT cols FROM".
func breakProjection(f Formatter, s string, level int) string {
	indent, sub := f.indent(level), f.indent(level+1)
	return replaceSubmatches(projection, s, func(start int, m []string) string {
		lead := ""
		if start == 0 {
			lead = indent
		}
		list := strings.TrimSpace(m[2])
		cols := SplitColumns(list)
		if len(cols) <= f.InlineColumns && len(list) < f.InlineWidth {
			return lead + m[1] + " " + list + m[3]
		}
		return lead + m[1] + "\n" + sub + strings.Join(cols, ",\n"+sub) + m[3]
	})
}

var clauseKeywords = []string{
	"FROM", "WHERE", "ORDER BY", "GROUP BY", "HAVING", "LIMIT", "OFFSET",
	"LEFT JOIN", "RIGHT JOIN", "INNER JOIN", "OUTER JOIN", "CROSS JOIN",
}

type clause struct {
	keyword string
	re      *regexp.Regexp
}

var clauses = func() []clause {
	cs := make([]clause, len(clauseKeywords))
	for i, kw := range clauseKeywords {
		cs[i] = clause{
			keyword: kw,
			re:      regexp.MustCompile(`(?i)\s+` + regexp.QuoteMeta(kw) + `\s+`),
		}
	}
	return cs
}()

// breakClauses starts every clause keyword on a new line at the statement
// indentation, upper-cased and followed by exactly one space.
func breakClauses(f Formatter, s string, level int) string {
	indent := f.indent(level)
	for _, c := range clauses {
		s = c.re.ReplaceAllLiteralString(s, "\n"+indent+c.keyword+" ")
	}
	return s
}

// conjunction matches AND/OR that are not enclosed in a parenthesized group:
// the lookahead rejects operators whose next parenthesis is a closing one.
var conjunction = regexp2.MustCompile(`(\s+)(AND|OR)(\s+)(?![^()]*\))`, regexp2.IgnoreCase)

// breakConjunctions moves top-level AND/OR operators to their own line, one
// unit deeper than the statement.
func breakConjunctions(f Formatter, s string, level int) string {
	sub := f.indent(level + 1)
	out, err := conjunction.ReplaceFunc(s, func(m regexp2.Match) string {
		return "\n" + sub + strings.ToUpper(m.GroupByNumber(2).String()) + " "
	}, -1, -1)
	if err != nil {
		return s
	}
	return out
}

var joinCondition = regexp.MustCompile(`(?is)((?:LEFT|RIGHT|INNER|OUTER|CROSS)?\s*JOIN\s+.*?\s+ON\s+.*?)(\n\s+AND\s+)`)

// alignJoinConditions indents the first AND following a JOIN ... ON one unit
// deeper than the JOIN line, grouping the join conditions under their join.
func alignJoinConditions(f Formatter, s string, level int) string {
	sub := f.indent(level + 1)
	return replaceSubmatches(joinCondition, s, func(_ int, m []string) string {
		return m[1] + "\n" + sub + "AND "
	})
}

var inList = regexp.MustCompile(`(?is)\bIN\s*\((.*?)\)`)

// tightenInLists undoes line breaks inside IN (...) lists and separates the
// items with ", ". Lists inside string literals are left alone.
func tightenInLists(_ Formatter, s string, _ int) string {
	return replaceSubmatches(inList, s, func(start int, m []string) string {
		if inStringAt(s, start) {
			return m[0]
		}
		return "IN (" + strings.Join(SplitColumns(collapse(m[1])), ", ") + ")"
	})
}

// nestSubqueries formats every "(SELECT ...)" one level deeper and puts it on
// its own lines between the parentheses. Unbalanced subqueries are skipped.
func nestSubqueries(f Formatter, s string, level int) string {
	sub := f.indent(level + 1)
	for offset := 0; offset < len(s); {
		i := strings.Index(s[offset:], "(SELECT")
		if i < 0 {
			break
		}
		open := offset + i
		end := findClosingParen(s, open)
		if end < 0 {
			offset = open + 1
			continue
		}
		lines := strings.Split(f.FormatIndent(s[open+1:end], level+1), "\n")
		for j := range lines {
			lines[j] = f.Indent + lines[j]
		}
		repl := "(\n" + strings.Join(lines, "\n") + "\n" + sub + ")"
		s = s[:open] + repl + s[end+1:]
		offset = open + len(repl)
	}
	return s
}

// replaceSubmatches is ReplaceAllStringFunc with access to the submatches and
// the start offset of every match.
func replaceSubmatches(re *regexp.Regexp, s string, fn func(start int, m []string) string) string {
	locs := re.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 {
		return s
	}
	var (
		b    strings.Builder
		last int
	)
	b.Grow(len(s) + len(s)/4)
	for _, loc := range locs {
		m := make([]string, len(loc)/2)
		for i := range m {
			if loc[2*i] >= 0 {
				m[i] = s[loc[2*i]:loc[2*i+1]]
			}
		}
		b.WriteString(s[last:loc[0]])
		b.WriteString(fn(loc[0], m))
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}
