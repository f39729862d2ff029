// Package compare orders heterogeneous, possibly missing record values.
//
// Compare is total and never panics. Rules are applied in order:
//
//  1. missing or nil sorts before any present value; two missing values are equal
//  2. two time.Time values compare by instant
//  3. two numbers compare numerically
//  4. two strings compare numerically when both parse as numbers, otherwise by
//     locale collation
//  5. two booleans: true sorts before false
//  6. two structured values compare by their JSON encoding
//  7. anything else compares by string form
//
// Rule 6 is order-sensitive: records encode in insertion order, so two records
// with equal contents but different key order may not compare equal.
package compare

import (
	"math"
	"math/big"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/gridkit/internal/record"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Comparator compares values using a fixed collation locale.
// It is safe for concurrent use.
type Comparator struct {
	mu       sync.Mutex
	collator *collate.Collator
}

// New returns a comparator collating strings for tag.
func New(tag language.Tag) *Comparator {
	return &Comparator{collator: collate.New(tag)}
}

// NewForLocale parses a BCP 47 locale, falling back to English when it is
// empty or malformed.
func NewForLocale(locale string) *Comparator {
	tag, err := language.Parse(locale)
	if err != nil || locale == "" {
		tag = language.English
	}
	return New(tag)
}

var defaultComparator = New(language.English)

// Compare orders records a and b by the value stored under key, using the
// default English collation. Returns -1, 0 or 1.
func Compare(key string, a, b *record.Record) int {
	return defaultComparator.Compare(key, a, b)
}

// Values compares two bare values with the default comparator.
func Values(x, y any) int {
	return defaultComparator.Values(x, y)
}

// Compare orders records a and b by the value stored under key.
func (c *Comparator) Compare(key string, a, b *record.Record) int {
	return c.Values(a.Value(key), b.Value(key))
}

// Values orders two bare values. See the package documentation for the rules.
func (c *Comparator) Values(x, y any) int {
	xMissing, yMissing := isMissing(x), isMissing(y)
	switch {
	case xMissing && yMissing:
		return 0
	case xMissing:
		return -1
	case yMissing:
		return 1
	}

	if tx, ok := x.(time.Time); ok {
		if ty, ok := y.(time.Time); ok {
			return tx.Compare(ty)
		}
	}

	if dx, ok := toDecimal(x); ok {
		if dy, ok := toDecimal(y); ok {
			return dx.Cmp(dy)
		}
	}

	if sx, ok := x.(string); ok {
		if sy, ok := y.(string); ok {
			return c.compareStrings(sx, sy)
		}
	}

	if bx, ok := x.(bool); ok {
		if by, ok := y.(bool); ok {
			switch {
			case bx == by:
				return 0
			case bx:
				return -1
			}
			return 1
		}
	}

	if record.IsStructured(x) && record.IsStructured(y) {
		jx, errX := json.Marshal(x)
		jy, errY := json.Marshal(y)
		if errX == nil && errY == nil {
			return sign(strings.Compare(string(jx), string(jy)))
		}
	}

	return sign(strings.Compare(record.String(x), record.String(y)))
}

func (c *Comparator) compareStrings(x, y string) int {
	if dx, err := parseNumber(x); err == nil {
		if dy, err := parseNumber(y); err == nil {
			return dx.Cmp(dy)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return sign(c.collator.CompareString(x, y))
}

// Sorter returns a comparison func over records for key, suitable for
// slices.SortStableFunc. desc reverses the whole order, so missing values
// end up last.
func (c *Comparator) Sorter(key string, desc bool) func(a, b *record.Record) int {
	return func(a, b *record.Record) int {
		if desc {
			return c.Compare(key, b, a)
		}
		return c.Compare(key, a, b)
	}
}

// Sort stably sorts records in place by key with the default comparator.
func Sort(records []*record.Record, key string, desc bool) {
	slices.SortStableFunc(records, defaultComparator.Sorter(key, desc))
}

func isMissing(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// toDecimal converts Go numeric kinds (not strings) to a decimal.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case json.Number:
		d, err := decimal.NewFromString(string(n))
		return d, err == nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(n), true
	case float32:
		if math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat32(n), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(rv.Uint()), 0), true
	}
	return decimal.Decimal{}, false
}

func parseNumber(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
