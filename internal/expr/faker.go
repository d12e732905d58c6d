package expr

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

var (
	firstNames = []string{"John", "Jane", "Alice", "Bob", "Charlie", "Diana", "Eve", "Frank", "Grace", "Henry",
		"Ingrid", "Jonas", "Karin", "Lars", "Maria", "Nils", "Olivia", "Pedro", "Quinn", "Rosa"}
	lastNames = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez",
		"Andersson", "Berg", "Lindqvist", "Nakamura", "Okafor", "Rossi", "Schmidt", "Tanaka", "Dubois", "Novak"}
	domains    = []string{"example.com", "test.com", "demo.com", "mail.com"}
	cities     = []string{"New York", "Stockholm", "London", "Berlin", "Tokyo", "Paris", "Madrid", "Toronto", "Sydney", "Singapore", "Seattle", "Chicago"}
	countries  = []string{"United States", "Sweden", "United Kingdom", "Germany", "Japan", "France", "Spain", "Canada", "Australia", "Singapore", "Brazil", "India"}
	states     = []string{"AL", "AK", "AZ", "CA", "CO", "FL", "GA", "IL", "MA", "NY", "OR", "TX", "WA"}
	currencies = []string{"USD", "EUR", "SEK", "GBP", "JPY", "CAD", "AUD", "SGD", "CHF", "NOK"}
	jsonKeys   = []string{"id", "name", "status", "tags", "score", "active", "region", "owner"}
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func pick(r *rand.Rand, values []string) string {
	return values[r.IntN(len(values))]
}

func randomFullName(r *rand.Rand) string {
	return pick(r, firstNames) + " " + pick(r, lastNames)
}

func randomEmail(r *rand.Rand) string {
	return fmt.Sprintf("%s.%s%d@%s",
		strings.ToLower(pick(r, firstNames)), strings.ToLower(pick(r, lastNames)),
		r.IntN(100000), pick(r, domains))
}

func randomPhone(r *rand.Rand) string {
	return fmt.Sprintf("+1-%03d-%03d-%04d", r.IntN(1000), r.IntN(1000), r.IntN(10000))
}

func randomZip(r *rand.Rand) string {
	return fmt.Sprintf("%05d", r.IntN(100000))
}

func randomString(r *rand.Rand, n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphanumeric[r.IntN(len(alphanumeric))])
	}
	return b.String()
}

// randomJSONValue builds a nested object with items keys per level.
func randomJSONValue(r *rand.Rand, items, depth int) map[string]any {
	obj := make(map[string]any, items)
	for i := 0; i < items; i++ {
		key := pick(r, jsonKeys)
		if _, dup := obj[key]; dup {
			key = fmt.Sprintf("%s_%d", key, i)
		}
		if depth > 1 {
			obj[key] = randomJSONValue(r, items, depth-1)
			continue
		}
		switch r.IntN(3) {
		case 0:
			obj[key] = randomString(r, 8)
		case 1:
			obj[key] = r.IntN(1000)
		default:
			obj[key] = r.IntN(2) == 1
		}
	}
	return obj
}
