package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/lu-zhengda/gmailwrapper/internal/domain"
)

// SearchEmails runs an FTS5 query over subject, body, sender and snippet.
// Plain words are matched as prefixes; a query containing FTS5 syntax
// (quotes, AND/OR/NOT, column filters) is passed through unchanged.
// Without the fts5 module every word must appear as a substring instead,
// newest first.
func (s *DB) SearchEmails(ctx context.Context, mailbox, query string, limit int) ([]domain.Email, error) {
	var (
		sqlQuery string
		args     []any
	)
	if s.fts {
		match := ftsQuery(query)
		if match == "" {
			return nil, nil
		}
		sqlQuery = `SELECT ` + emailColumns + `
		FROM emails e
		JOIN emails_fts fts ON fts.rowid = e.rowid
		WHERE emails_fts MATCH ? AND e.mailbox = ?
		ORDER BY rank`
		args = []any{match, mailbox}
	} else {
		words := likeTerms(query)
		if len(words) == 0 {
			return nil, nil
		}
		sqlQuery = `SELECT ` + emailColumns + ` FROM emails e WHERE e.mailbox = ?`
		args = []any{mailbox}
		for _, w := range words {
			sqlQuery += ` AND (e.subject LIKE ? ESCAPE '\' OR e.body_text LIKE ? ESCAPE '\'
			OR e.from_addr LIKE ? ESCAPE '\' OR e.from_name LIKE ? ESCAPE '\' OR e.snippet LIKE ? ESCAPE '\')`
			pattern := "%" + likeEscaper.Replace(w) + "%"
			args = append(args, pattern, pattern, pattern, pattern, pattern)
		}
		sqlQuery += ` ORDER BY e.date DESC`
	}
	if limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, limit)
	}

	emails, err := s.queryEmails(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}
	if err := s.attachLabels(ctx, mailbox, emails); err != nil {
		return nil, err
	}
	return emails, nil
}

func ftsQuery(q string) string {
	q = strings.TrimSpace(q)
	if q == "" || strings.ContainsAny(q, `"*:()`) {
		return q
	}
	words := strings.Fields(q)
	for i, w := range words {
		switch w {
		case "AND", "OR", "NOT", "NEAR":
			return q
		}
		words[i] = `"` + w + `"*`
	}
	return strings.Join(words, " ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// likeTerms reduces a query to bare words: FTS5 operators are dropped,
// column filters keep only their value.
func likeTerms(q string) []string {
	var terms []string
	for _, w := range strings.Fields(q) {
		switch w {
		case "AND", "OR", "NOT", "NEAR":
			continue
		}
		if i := strings.LastIndex(w, ":"); i >= 0 {
			w = w[i+1:]
		}
		if w = strings.Trim(w, `"*()`); w != "" {
			terms = append(terms, w)
		}
	}
	return terms
}
