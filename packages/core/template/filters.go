package template

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/tplspec/packages/predicate"
)

func defaultFilters() map[string]Filter {
	return map[string]Filter{
		"upper":    stringFilter(strings.ToUpper),
		"lower":    stringFilter(strings.ToLower),
		"trim":     stringFilter(strings.TrimSpace),
		"length":   filterLength,
		"count":    filterLength,
		"default":  filterDefault,
		"d":        filterDefault,
		"join":     filterJoin,
		"first":    filterFirst,
		"last":     filterLast,
		"string":   func(v any, _ ...any) (any, error) { return toString(v), nil },
		"int":      filterInt,
		"float":    filterFloat,
		"abs":      filterAbs,
		"replace":  filterReplace,
		"sort":     filterSort,
		"tojson":   filterToJSON,
		"toyaml":   filterToYAML,
		"json_get": filterJSONGet,

		"b64encode": stringFilter(func(s string) string {
			return base64.StdEncoding.EncodeToString([]byte(s))
		}),
		"b64decode": errStringFilter(func(s string) (string, error) {
			b, err := base64.StdEncoding.DecodeString(s)
			return string(b), err
		}),
		"md5": stringFilter(func(s string) string {
			sum := md5.Sum([]byte(s))
			return hex.EncodeToString(sum[:])
		}),
		"sha256": stringFilter(func(s string) string {
			sum := sha256.Sum256([]byte(s))
			return hex.EncodeToString(sum[:])
		}),
		"urlencode": stringFilter(url.QueryEscape),
		"urldecode": errStringFilter(url.QueryUnescape),
	}
}

func defaultGlobals() map[string]any {
	return map[string]any{
		"range": Func(globalRange),
		"uuid": Func(func(args ...any) (any, error) {
			return uuid.NewString(), nil
		}),
		"now": Func(func(args ...any) (any, error) {
			layout := time.RFC3339
			if len(args) > 0 {
				layout = toString(args[0])
			}
			return time.Now().UTC().Format(layout), nil
		}),
		"timestamp": Func(func(args ...any) (any, error) {
			return time.Now().Unix(), nil
		}),
		"random": Func(globalRandom),
	}
}

// globalRandom returns an integer in [min, max], defaulting to [0, 100].
func globalRandom(args ...any) (any, error) {
	bounds := []int64{0, 100}
	if len(args) != 0 && len(args) != 2 {
		return nil, fmt.Errorf("random expects 0 or 2 arguments, got %d", len(args))
	}
	for i, a := range args {
		n, ok := number(a)
		if !ok || !n.isInt {
			return nil, fmt.Errorf("random expects integers, got %s", typeName(a))
		}
		bounds[i] = n.i
	}
	lo, hi := bounds[0], bounds[1]
	if hi < lo {
		return nil, fmt.Errorf("random: max %d is less than min %d", hi, lo)
	}
	return lo + rand.Int63n(hi-lo+1), nil
}

func errStringFilter(fn func(string) (string, error)) Filter {
	return func(v any, _ ...any) (any, error) {
		if u, ok := isUndefined(v); ok {
			return nil, &UndefinedError{Name: u.Name}
		}
		return fn(toString(v))
	}
}

func stringFilter(fn func(string) string) Filter {
	return func(v any, _ ...any) (any, error) {
		if u, ok := isUndefined(v); ok {
			return nil, &UndefinedError{Name: u.Name}
		}
		return fn(toString(v)), nil
	}
}

func filterLength(v any, _ ...any) (any, error) {
	if u, ok := isUndefined(v); ok {
		return nil, &UndefinedError{Name: u.Name}
	}
	n := predicate.Length(v)
	if n < 0 {
		return nil, fmt.Errorf("object of type %s has no length", typeName(v))
	}
	return int64(n), nil
}

// filterDefault replaces undefined values, or any falsy value when the
// second argument is true.
func filterDefault(v any, args ...any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("default expects a fallback value")
	}
	if _, ok := isUndefined(v); ok {
		return args[0], nil
	}
	if len(args) > 1 && Truthy(args[1]) && !Truthy(v) {
		return args[0], nil
	}
	return v, nil
}

func filterJoin(v any, args ...any) (any, error) {
	sep := ""
	if len(args) > 0 {
		sep = toString(args[0])
	}
	items, err := iterate(v)
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = toString(it.Value)
	}
	return strings.Join(parts, sep), nil
}

func filterFirst(v any, _ ...any) (any, error) {
	items, err := iterate(v)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return Undefined{Name: "first"}, nil
	}
	return items[0].Value, nil
}

func filterLast(v any, _ ...any) (any, error) {
	items, err := iterate(v)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return Undefined{Name: "last"}, nil
	}
	return items[len(items)-1].Value, nil
}

func filterInt(v any, args ...any) (any, error) {
	if n, ok := number(v); ok {
		if n.isInt {
			return n.i, nil
		}
		return int64(n.f), nil
	}
	if f, ok := predicate.ToFloat64(v); ok {
		return int64(f), nil
	}
	if len(args) > 0 {
		return args[0], nil
	}
	return int64(0), nil
}

func filterFloat(v any, args ...any) (any, error) {
	if f, ok := predicate.ToFloat64(v); ok {
		return f, nil
	}
	if len(args) > 0 {
		return args[0], nil
	}
	return 0.0, nil
}

func filterAbs(v any, _ ...any) (any, error) {
	n, ok := number(v)
	if !ok {
		return nil, fmt.Errorf("bad operand type for abs: %s", typeName(v))
	}
	if n.isInt {
		if n.i < 0 {
			return -n.i, nil
		}
		return n.i, nil
	}
	return math.Abs(n.f), nil
}

func filterReplace(v any, args ...any) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("replace expects old and new strings")
	}
	count := -1
	if len(args) > 2 {
		if n, ok := predicate.ToInt(args[2]); ok {
			count = n
		}
	}
	return strings.Replace(toString(v), toString(args[0]), toString(args[1]), count), nil
}

func filterSort(v any, _ ...any) (any, error) {
	items, err := iterate(v)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = it.Value
	}
	var cmpErr error
	sort.SliceStable(out, func(i, j int) bool {
		c, err := predicate.Compare(out[i], out[j])
		if err != nil && cmpErr == nil {
			cmpErr = err
		}
		return c < 0
	})
	if cmpErr != nil {
		return nil, cmpErr
	}
	return out, nil
}

func filterToJSON(v any, args ...any) (any, error) {
	var (
		data []byte
		err  error
	)
	if len(args) > 0 {
		if n, ok := predicate.ToInt(args[0]); ok && n > 0 {
			data, err = json.MarshalIndent(v, "", strings.Repeat(" ", n))
		}
	}
	if data == nil && err == nil {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func filterToYAML(v any, _ ...any) (any, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

// filterJSONGet reads a gjson path out of a JSON document.
func filterJSONGet(v any, args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("json_get expects a path")
	}
	doc := toString(v)
	if !gjson.Valid(doc) {
		return nil, fmt.Errorf("json_get: invalid JSON")
	}
	res := gjson.Get(doc, toString(args[0]))
	if !res.Exists() {
		return Undefined{Name: toString(args[0])}, nil
	}
	val := res.Value()
	if f, ok := val.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f), nil
	}
	return val, nil
}

func globalRange(args ...any) (any, error) {
	var start, stop, step int64 = 0, 0, 1
	ints := make([]int64, len(args))
	for i, a := range args {
		n, ok := number(a)
		if !ok || !n.isInt {
			return nil, fmt.Errorf("range expects integers, got %s", typeName(a))
		}
		ints[i] = n.i
	}
	switch len(ints) {
	case 1:
		stop = ints[0]
	case 2:
		start, stop = ints[0], ints[1]
	case 3:
		start, stop, step = ints[0], ints[1], ints[2]
	default:
		return nil, fmt.Errorf("range expects 1 to 3 arguments, got %d", len(args))
	}
	if step == 0 {
		return nil, fmt.Errorf("range step must not be zero")
	}
	out := []any{}
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		out = append(out, i)
	}
	return out, nil
}
