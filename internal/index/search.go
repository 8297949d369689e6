// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// SEARCH
// =============================================================================

// DefaultSearchLimit caps results when the caller passes a non-positive
// limit.
const DefaultSearchLimit = 20

// snippetRadius is how many runes of context surround the first match in
// a snippet.
const snippetRadius = 20

// Hit is one search result.
type Hit struct {
	ConvID    string
	Title     string
	Model     string
	Role      string
	Snippet   string
	UpdatedAt time.Time
}

// Search finds messages containing the query substring. Results are
// ordered newest conversation first, one hit per conversation.
func (idx *Index) Search(query string, limit int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, ErrClosed
	}

	pattern := "%" + escapeLike(query) + "%"

	// One row per conversation: the earliest matching message wins.
	rows, err := idx.db.Query(`
		SELECT c.id, c.title, c.model, c.updated_at, m.role, m.content
		FROM conversations c
		JOIN messages m ON m.conv_id = c.id
		WHERE m.content LIKE ? ESCAPE '\' OR c.title LIKE ? ESCAPE '\'
		GROUP BY c.id
		HAVING m.seq = MIN(m.seq)
		ORDER BY c.updated_at DESC
		LIMIT ?
	`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var hit Hit
		var updatedAt int64
		var content string
		if err := rows.Scan(&hit.ConvID, &hit.Title, &hit.Model, &updatedAt, &hit.Role, &content); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		hit.UpdatedAt = time.Unix(updatedAt, 0)
		hit.Snippet = makeSnippet(content, query)
		hits = append(hits, hit)
	}

	return hits, rows.Err()
}

// escapeLike escapes LIKE metacharacters in a query.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// makeSnippet extracts the text around the first occurrence of query in
// content. Offsets are computed in runes so Japanese text is never cut
// mid-character.
func makeSnippet(content, query string) string {
	content = strings.ReplaceAll(content, "\n", " ")

	lower := strings.ToLower(content)
	pos := strings.Index(lower, strings.ToLower(query))
	if pos < 0 {
		// Title-only match: lead with the start of the content.
		return truncateSnippet(content, 2*snippetRadius)
	}

	// Convert the byte offset to a rune offset.
	runePos := len([]rune(content[:pos]))
	runes := []rune(content)
	queryRunes := len([]rune(query))

	start := runePos - snippetRadius
	if start < 0 {
		start = 0
	}
	end := runePos + queryRunes + snippetRadius
	if end > len(runes) {
		end = len(runes)
	}

	snippet := string(runes[start:end])
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(runes) {
		snippet += "…"
	}
	return snippet
}

// truncateSnippet shortens content to at most n runes.
func truncateSnippet(content string, n int) string {
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n]) + "…"
}
