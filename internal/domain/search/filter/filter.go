package filter

import "fmt"

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// Expression is a conjunction of tag matches with must/must_not semantics.
type Expression struct {
	must    []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, mustNot: mustNot}, nil
}

// MustMatch builds an expression requiring every key=value pair, in the given order.
// Pairs with an empty value are skipped.
func MustMatch(pairs ...string) (Expression, error) {
	if len(pairs)%2 != 0 {
		return Expression{}, fmt.Errorf("odd number of key/value arguments")
	}
	var must []Condition
	for i := 0; i < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		c, err := NewMatch(pairs[i], pairs[i+1])
		if err != nil {
			return Expression{}, err
		}
		must = append(must, c)
	}
	return NewExpression(must, nil)
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.mustNot) == 0
}

// Matches evaluates the expression against a flat field map.
func (e Expression) Matches(fields map[string]string) bool {
	for _, c := range e.must {
		if fields[c.key] != c.match {
			return false
		}
	}
	for _, c := range e.mustNot {
		if fields[c.key] == c.match {
			return false
		}
	}
	return true
}

// Condition is an exact tag match.
type Condition struct {
	key   string
	match string
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }
