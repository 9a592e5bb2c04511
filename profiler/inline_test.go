package profiler

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quoteAll renders every value as a single-quoted string, the way the
// trusted-value quoting of most dialects does.
var quoteAll = QuoterFunc(func(v any) string {
	return "'" + fmt.Sprint(v) + "'"
})

func TestInline(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		params *Params
		want   string
	}{
		{
			name:   "single",
			query:  "SELECT * FROM users WHERE id = :id",
			params: NewParams("id", 1),
			want:   "SELECT * FROM users WHERE id = '1'",
		},
		{
			name:   "prefix_names",
			query:  "SELECT * FROM t WHERE a = :a AND b = :ab",
			params: NewParams("a", 1, "ab", 2),
			want:   "SELECT * FROM t WHERE a = '1' AND b = '2'",
		},
		{
			name:   "every_occurrence",
			query:  "SELECT * FROM t WHERE a = :a OR b = :a",
			params: NewParams("a", "x"),
			want:   "SELECT * FROM t WHERE a = 'x' OR b = 'x'",
		},
		{
			name:   "null",
			query:  "UPDATE users SET name = :name WHERE id = :id",
			params: NewParams("id", 3, "name", nil),
			want:   "UPDATE users SET name = NULL WHERE id = '3'",
		},
		{
			name:   "typed_nil",
			query:  "UPDATE users SET name = :name",
			params: NewParams("name", (*string)(nil)),
			want:   "UPDATE users SET name = NULL",
		},
		{
			name:   "invalid_null_string",
			query:  "UPDATE users SET name = :name",
			params: NewParams("name", sql.NullString{}),
			want:   "UPDATE users SET name = NULL",
		},
		{
			name:   "valid_null_string",
			query:  "UPDATE users SET name = :name",
			params: NewParams("name", sql.NullString{String: "bob", Valid: true}),
			want:   "UPDATE users SET name = 'bob'",
		},
		{
			name:   "no_params",
			query:  "SELECT 1",
			params: nil,
			want:   "SELECT 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Inline(tt.query, tt.params, quoteAll))
		})
	}
}

func TestInlinePrefixCollision(t *testing.T) {
	query := "SELECT * FROM t WHERE id = :id AND identifier = :identifier AND idx = :idx"
	got := Inline(query, NewParams("id", 7, "idx", 8, "identifier", "abc"), quoteAll)
	assert.Equal(t, "SELECT * FROM t WHERE id = '7' AND identifier = 'abc' AND idx = '8'", got)
	assert.NotContains(t, got, "'7'entifier")
	assert.NotContains(t, got, "'7'x")
}

func TestInlineNullNeverQuoted(t *testing.T) {
	got := Inline("INSERT INTO t (a, b) VALUES (:a, :b)", NewParams("a", nil, "b", ""), quoteAll)
	assert.Equal(t, "INSERT INTO t (a, b) VALUES (NULL, '')", got)
	assert.NotContains(t, got, "'NULL'")
}

func TestInlineWithoutQuoter(t *testing.T) {
	query := "SELECT * FROM t WHERE a = :a"
	assert.Equal(t, query, Inline(query, NewParams("a", 1), nil))
}

// Inlining with a reversible literal and undoing it restores the template.
func TestInlineRoundTrip(t *testing.T) {
	query := "SELECT * FROM t WHERE a = :alpha AND b IN (:beta, :gamma) ORDER BY :delta"
	params := NewParams("alpha", "alpha", "beta", "beta", "gamma", "gamma", "delta", "delta")
	mark := QuoterFunc(func(v any) string { return "<" + fmt.Sprint(v) + ">" })

	inlined := Inline(query, params, mark)
	require.NotContains(t, inlined, ":")
	for _, name := range params.Names() {
		inlined = strings.ReplaceAll(inlined, "<"+name+">", ":"+name)
	}
	assert.Equal(t, query, inlined)
}

func TestUnquoteLiterals(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"limit_offset", "SELECT * FROM t LIMIT '10' OFFSET '20'", "SELECT * FROM t LIMIT 10 OFFSET 20"},
		{"unquoted", "SELECT * FROM t LIMIT 10", "SELECT * FROM t LIMIT 10"},
		{"backticks", "SELECT `users`.`id` FROM `users`", "SELECT users.id FROM users"},
		{"string_untouched", "SELECT * FROM t WHERE a = 'LIMIT'", "SELECT * FROM t WHERE a = 'LIMIT'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, unquoteLiterals(tt.input))
		})
	}
}

func TestRebind(t *testing.T) {
	t.Run("question_marks", func(t *testing.T) {
		st := Rebind("SELECT * FROM t WHERE a = ? AND b = '?' AND c = ?", []any{1, 2})
		assert.Equal(t, "SELECT * FROM t WHERE a = :p1 AND b = '?' AND c = :p2", st.SQL)
		assert.Equal(t, []string{"p1", "p2"}, st.Params.Names())
		v, ok := st.Params.Get("p2")
		require.True(t, ok)
		assert.Equal(t, 2, v)
	})

	t.Run("dollar_numbers", func(t *testing.T) {
		st := Rebind("UPDATE t SET a = $2 WHERE id = $1 AND note = '$1'", []any{10, "x"})
		assert.Equal(t, "UPDATE t SET a = :p2 WHERE id = :p1 AND note = '$1'", st.SQL)
		assert.Equal(t, 2, st.Params.Len())
	})

	t.Run("ten_or_more", func(t *testing.T) {
		args := make([]any, 10)
		for i := range args {
			args[i] = i + 1
		}
		st := Rebind("SELECT * FROM t WHERE a = $1 AND b = $10", args)
		got := Inline(st.SQL, st.Params, quoteAll)
		assert.Equal(t, "SELECT * FROM t WHERE a = '1' AND b = '10'", got)
	})

	t.Run("named_arg", func(t *testing.T) {
		st := Rebind("SELECT * FROM t WHERE id = :id", []any{sql.Named("id", 5)})
		assert.Equal(t, "SELECT * FROM t WHERE id = :id", st.SQL)
		v, ok := st.Params.Get("id")
		require.True(t, ok)
		assert.Equal(t, 5, v)
	})

	t.Run("no_args", func(t *testing.T) {
		st := Rebind("SELECT 1", nil)
		assert.Equal(t, "SELECT 1", st.SQL)
		assert.Zero(t, st.Params.Len())
	})
}

func TestParams(t *testing.T) {
	p := NewParams("b", 1, "a", 2)
	p.Set("b", 3)
	assert.Equal(t, []string{"b", "a"}, p.Names())
	v, _ := p.Get("b")
	assert.Equal(t, 3, v)

	raw := []byte("abc")
	p.Set("raw", raw)
	c := p.Clone()
	raw[0] = 'x'
	p.Set("a", 9)
	v, _ = c.Get("a")
	assert.Equal(t, 2, v)
	v, _ = c.Get("raw")
	assert.Equal(t, []byte("abc"), v)

	var nilParams *Params
	assert.Nil(t, nilParams.Clone())
	assert.Zero(t, nilParams.Len())
	assert.Panics(t, func() { NewParams("odd") })
	assert.Panics(t, func() { NewParams(1, 2) })
}
