package sqlite

import (
	"encoding/json"
	"strings"
)

func placeholder(int) string {
	return "?"
}

func placeholders(n int) string {
	list := make([]string, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

// Watchlist terms live in a TEXT column as a JSON array.

func encodeTerms(terms []string) (string, error) {
	if terms == nil {
		terms = []string{}
	}
	b, err := json.Marshal(terms)
	return string(b), err
}

func decodeTerms(raw string) ([]string, error) {
	terms := []string{}
	if raw == "" {
		return terms, nil
	}
	if err := json.Unmarshal([]byte(raw), &terms); err != nil {
		return nil, err
	}
	return terms, nil
}
