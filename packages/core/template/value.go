package template

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/tplspec/packages/predicate"
)

// Undefined stands in for names and attributes that do not resolve. It
// prints as the empty string and is falsy; any other use raises an
// UndefinedError naming the missing path.
type Undefined struct {
	Name string
}

func (u Undefined) String() string {
	return ""
}

func isUndefined(v any) (Undefined, bool) {
	u, ok := v.(Undefined)
	return u, ok
}

func toString(v any) string {
	return predicate.ToString(v)
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// Truthy reports the template truth value of v.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil, Undefined:
		return false
	case bool:
		return val
	case string:
		return val != ""
	}
	if n, ok := number(v); ok {
		return n.float() != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// num holds a template number, keeping integers exact.
type num struct {
	i     int64
	f     float64
	isInt bool
}

func (n num) float() float64 {
	if n.isInt {
		return float64(n.i)
	}
	return n.f
}

func (n num) value() any {
	if n.isInt {
		return n.i
	}
	return n.f
}

func number(v any) (num, bool) {
	switch val := v.(type) {
	case int64:
		return num{i: val, isInt: true}, true
	case float64:
		return num{f: val}, true
	case bool, string, nil:
		return num{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return num{i: rv.Int(), isInt: true}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return num{i: int64(rv.Uint()), isInt: true}, true
	case reflect.Float32, reflect.Float64:
		return num{f: rv.Float()}, true
	}
	return num{}, false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "none"
	case Undefined:
		return "undefined"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "list"
	case map[string]any:
		return "dict"
	}
	if n, ok := number(v); ok {
		if n.isInt {
			return "integer"
		}
		return "float"
	}
	return reflect.TypeOf(v).String()
}

// valuesEqual is template `==`: numbers compare numerically, everything
// else structurally.
func valuesEqual(a, b any) bool {
	an, aOk := number(a)
	bn, bOk := number(b)
	if aOk && bOk {
		return an.float() == bn.float()
	}
	return reflect.DeepEqual(a, b)
}

func compareValues(op string, a, b any) (bool, error) {
	var c int
	an, aOk := number(a)
	bn, bOk := number(b)
	as, aStr := a.(string)
	bs, bStr := b.(string)
	switch {
	case aOk && bOk:
		switch {
		case an.float() < bn.float():
			c = -1
		case an.float() > bn.float():
			c = 1
		}
	case aStr && bStr:
		c = strings.Compare(as, bs)
	default:
		return false, fmt.Errorf("'%s' not supported between %s and %s", op, typeName(a), typeName(b))
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

func containsValue(container, item any) (bool, error) {
	if s, ok := container.(string); ok {
		return strings.Contains(s, toString(item)), nil
	}
	rv := reflect.ValueOf(container)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if valuesEqual(rv.Index(i).Interface(), item) {
				return true, nil
			}
		}
		return false, nil
	case reflect.Map:
		for _, key := range rv.MapKeys() {
			if valuesEqual(key.Interface(), item) || toString(key.Interface()) == toString(item) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("argument of type %s is not iterable", typeName(container))
}

func arithmetic(op string, a, b any) (any, error) {
	if u, ok := isUndefined(a); ok {
		return nil, &UndefinedError{Name: u.Name}
	}
	if u, ok := isUndefined(b); ok {
		return nil, &UndefinedError{Name: u.Name}
	}

	an, aOk := number(a)
	bn, bOk := number(b)
	if !aOk || !bOk {
		return nonNumeric(op, a, b)
	}

	if an.isInt && bn.isInt {
		x, y := an.i, bn.i
		switch op {
		case "+":
			if s := x + y; (x^s)&(y^s) >= 0 {
				return s, nil
			}
		case "-":
			if d := x - y; (x^y)&(x^d) >= 0 {
				return d, nil
			}
		case "*":
			if p, ok := mulInt(x, y); ok {
				return p, nil
			}
		case "//":
			if y == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			if x == math.MinInt64 && y == -1 {
				break
			}
			q := x / y
			if (x%y != 0) && ((x < 0) != (y < 0)) {
				q--
			}
			return q, nil
		case "%":
			if y == 0 {
				return nil, fmt.Errorf("modulo by zero")
			}
			m := x % y
			if m != 0 && ((m < 0) != (y < 0)) {
				m += y
			}
			return m, nil
		}
		// Overflowing integer results fall through to float arithmetic.
	}

	x, y := an.float(), bn.float()
	switch op {
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/":
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return x / y, nil
	case "//":
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return math.Floor(x / y), nil
	case "%":
		if y == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return math.Mod(x, y), nil
	}
	return nil, fmt.Errorf("unknown operator %s", op)
}

// mulInt multiplies x and y, reporting false on int64 overflow.
func mulInt(x, y int64) (int64, bool) {
	if x == 0 || y == 0 {
		return 0, true
	}
	p := x * y
	if (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) || p/y != x {
		return 0, false
	}
	return p, true
}

func nonNumeric(op string, a, b any) (any, error) {
	switch op {
	case "+":
		if as, ok := a.(string); ok {
			if bs, ok := b.(string); ok {
				return as + bs, nil
			}
		}
		if al, ok := a.([]any); ok {
			if bl, ok := b.([]any); ok {
				out := make([]any, 0, len(al)+len(bl))
				return append(append(out, al...), bl...), nil
			}
		}
	case "*":
		if s, ok := a.(string); ok {
			if n, ok := number(b); ok && n.isInt && n.i >= 0 {
				return strings.Repeat(s, int(n.i)), nil
			}
		}
	}
	return nil, fmt.Errorf("unsupported operand types for %s: %s and %s", op, typeName(a), typeName(b))
}

// getAttr resolves obj.name over maps, structs and pointers to structs.
func getAttr(obj any, name string) (any, bool) {
	switch m := obj.(type) {
	case map[string]any:
		v, ok := m[name]
		return v, ok
	case map[string]string:
		v, ok := m[name]
		return v, ok
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		if method := rv.MethodByName(name); method.IsValid() && method.Type().NumIn() == 0 && method.Type().NumOut() == 1 {
			return method.Call(nil)[0].Interface(), true
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Struct:
		f := rv.FieldByName(name)
		if !f.IsValid() || !f.CanInterface() {
			return nil, false
		}
		return f.Interface(), true
	}
	return nil, false
}

func getItem(obj, key any) (any, bool, error) {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.String:
		n, ok := number(key)
		if !ok || !n.isInt {
			return nil, false, fmt.Errorf("%s indices must be integers, not %s", typeName(obj), typeName(key))
		}
		i := int(n.i)
		if rv.Kind() == reflect.String {
			runes := []rune(rv.String())
			if i < 0 {
				i += len(runes)
			}
			if i < 0 || i >= len(runes) {
				return nil, false, nil
			}
			return string(runes[i]), true, nil
		}
		if i < 0 {
			i += rv.Len()
		}
		if i < 0 || i >= rv.Len() {
			return nil, false, nil
		}
		return rv.Index(i).Interface(), true, nil
	case reflect.Map:
		k := reflect.ValueOf(key)
		if !k.IsValid() {
			return nil, false, nil
		}
		if !k.Type().AssignableTo(rv.Type().Key()) {
			if k.Kind() != rv.Type().Key().Kind() || !k.Type().ConvertibleTo(rv.Type().Key()) {
				return nil, false, nil
			}
			k = k.Convert(rv.Type().Key())
		}
		v := rv.MapIndex(k)
		if !v.IsValid() {
			return nil, false, nil
		}
		return v.Interface(), true, nil
	case reflect.Struct:
		if name, ok := key.(string); ok {
			v, found := getAttr(obj, name)
			return v, found, nil
		}
	}
	return nil, false, nil
}

// pair is one iteration step; Key is the index for sequences.
type pair struct {
	Key   any
	Value any
}

func iterate(v any) ([]pair, error) {
	switch val := v.(type) {
	case nil, Undefined:
		return nil, nil
	case string:
		runes := []rune(val)
		out := make([]pair, len(runes))
		for i, r := range runes {
			out[i] = pair{Key: int64(i), Value: string(r)}
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]pair, rv.Len())
		for i := range out {
			out[i] = pair{Key: int64(i), Value: rv.Index(i).Interface()}
		}
		return out, nil
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return toString(keys[i].Interface()) < toString(keys[j].Interface())
		})
		out := make([]pair, len(keys))
		for i, k := range keys {
			out[i] = pair{Key: k.Interface(), Value: rv.MapIndex(k).Interface()}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s is not iterable", typeName(v))
}
