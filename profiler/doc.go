// Package profiler records executed SQL statements and renders them for logs.
//
// A statement reaches the profiler either as plain SQL text or as a
// *Statement, a template with ":name" placeholders and the values bound to
// them. Given a Quoter for the target dialect, the profiler inlines the
// values as literals and lays the statement out on several lines:
//
//	SELECT
//	    p.page_id AS page_id,
//	    p.slug AS slug,
//	    (
//	        SELECT t.title AS title
//	        FROM translations AS t
//	        WHERE t.item_id = p.page_id
//	            AND t.lang IN ('en', 'de')
//	        LIMIT 1
//	    ) AS page_title
//	FROM pages AS p
//	LEFT JOIN params AS pp ON pp.item_id = p.page_id
//	    AND pp.type = 'page'
//	WHERE p.status = '1'
//	    AND p.deleted_at = '0'
//
// # Profiling
//
//	prof := profiler.New(profiler.WithQuoter(quoter))
//	h, err := prof.Start(profiler.NewStatement(query, params))
//	if err != nil {
//	    return err
//	}
//	// execute the statement
//	_ = prof.Stop(h)
//
// Every Profile carries the reconstructed SQL, a snapshot of the parameters,
// start and end times and, when one can be found, the call site outside the
// profiling machinery that issued the statement.
//
// # Formatting
//
// Format and FormatIndent work on any SQL text and do not need a Profiler.
// They are best-effort: the text is never validated, and fragments such as
// unbalanced subqueries are left as they are. Projections with at most
// Formatter.InlineColumns columns that are shorter than Formatter.InlineWidth
// stay on the SELECT line.
//
// # Positional arguments
//
// Rebind turns "?" and "$N" placeholders into ":pN" so arguments passed
// through database/sql can be inlined the same way.
package profiler
