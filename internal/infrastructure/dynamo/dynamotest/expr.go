package dynamotest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is one stored DynamoDB item.
type Item = map[string]types.AttributeValue

// Match evaluates a condition or key condition expression against item.
// It understands conjunctions of attribute_exists, attribute_not_exists and
// the comparisons =, <>, <, <=, >, >=. A nil or empty expression matches.
func Match(expr *string, names map[string]string, values map[string]types.AttributeValue, item Item) (bool, error) {
	if expr == nil || strings.TrimSpace(*expr) == "" {
		return true, nil
	}
	for _, clause := range strings.Split(*expr, " AND ") {
		ok, err := matchClause(strings.TrimSpace(clause), names, values, item)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchClause(clause string, names map[string]string, values map[string]types.AttributeValue, item Item) (bool, error) {
	for _, fn := range []string{"attribute_exists", "attribute_not_exists"} {
		if strings.HasPrefix(clause, fn+"(") && strings.HasSuffix(clause, ")") {
			attr, err := resolve(strings.TrimSuffix(strings.TrimPrefix(clause, fn+"("), ")"), names)
			if err != nil {
				return false, err
			}
			_, present := item[attr]
			return present == (fn == "attribute_exists"), nil
		}
	}

	f := strings.Fields(clause)
	if len(f) != 3 {
		return false, fmt.Errorf("unsupported clause %q", clause)
	}
	attr, err := resolve(f[0], names)
	if err != nil {
		return false, err
	}
	want, ok := values[f[2]]
	if !ok {
		return false, fmt.Errorf("missing value %s", f[2])
	}
	got, ok := item[attr]
	if !ok {
		return false, nil
	}
	cmp, ok := compare(got, want)
	if !ok {
		return false, nil
	}
	switch f[1] {
	case "=":
		return cmp == 0, nil
	case "<>":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	}
	return false, fmt.Errorf("unsupported operator %q", f[1])
}

func resolve(tok string, names map[string]string) (string, error) {
	tok = strings.TrimSpace(tok)
	if !strings.HasPrefix(tok, "#") {
		return tok, nil
	}
	name, ok := names[tok]
	if !ok {
		return "", fmt.Errorf("missing name %s", tok)
	}
	return name, nil
}

// compare orders two scalar attributes. ok is false when the types differ or
// are not ordered; BOOL values only compare for equality.
func compare(a, b types.AttributeValue) (int, bool) {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		if !ok {
			return 0, false
		}
		return strings.Compare(av.Value, bv.Value), true
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return 0, false
		}
		x, err1 := strconv.ParseFloat(av.Value, 64)
		y, err2 := strconv.ParseFloat(bv.Value, 64)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		if !ok {
			return 0, false
		}
		if av.Value == bv.Value {
			return 0, true
		}
		return 1, true
	}
	return 0, false
}

var updateKeyword = regexp.MustCompile(`\b(SET|REMOVE|ADD)\s`)

// apply runs an update expression of SET, REMOVE and numeric ADD clauses
// against item in place.
func apply(expr string, names map[string]string, values map[string]types.AttributeValue, item Item) error {
	locs := updateKeyword.FindAllStringSubmatchIndex(expr, -1)
	if len(locs) == 0 {
		return fmt.Errorf("unsupported update %q", expr)
	}
	for i, loc := range locs {
		end := len(expr)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		kw := expr[loc[2]:loc[3]]
		for _, part := range strings.Split(expr[loc[1]:end], ",") {
			part = strings.TrimSpace(part)
			if err := applyPart(kw, part, names, values, item); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyPart(kw, part string, names map[string]string, values map[string]types.AttributeValue, item Item) error {
	switch kw {
	case "SET":
		lhs, rhs, ok := strings.Cut(part, "=")
		if !ok {
			return fmt.Errorf("unsupported SET %q", part)
		}
		attr, err := resolve(lhs, names)
		if err != nil {
			return err
		}
		v, ok := values[strings.TrimSpace(rhs)]
		if !ok {
			return fmt.Errorf("missing value %s", rhs)
		}
		item[attr] = v
	case "REMOVE":
		attr, err := resolve(part, names)
		if err != nil {
			return err
		}
		delete(item, attr)
	case "ADD":
		f := strings.Fields(part)
		if len(f) != 2 {
			return fmt.Errorf("unsupported ADD %q", part)
		}
		attr, err := resolve(f[0], names)
		if err != nil {
			return err
		}
		delta, ok := values[f[1]].(*types.AttributeValueMemberN)
		if !ok {
			return fmt.Errorf("ADD needs a number, got %s", f[1])
		}
		d, err := strconv.ParseInt(delta.Value, 10, 64)
		if err != nil {
			return err
		}
		var cur int64
		if n, ok := item[attr].(*types.AttributeValueMemberN); ok {
			if cur, err = strconv.ParseInt(n.Value, 10, 64); err != nil {
				return err
			}
		}
		item[attr] = &types.AttributeValueMemberN{Value: strconv.FormatInt(cur+d, 10)}
	}
	return nil
}
