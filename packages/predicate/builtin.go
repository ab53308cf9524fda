package predicate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

func (r *Registry) registerDefaults() {
	r.RegisterFunc("contains", testContains)
	r.RegisterFunc("startswith", testStartsWith)
	r.RegisterFunc("endswith", testEndsWith)
	r.RegisterFunc("matches", testMatches)
	r.RegisterFunc("empty", testEmpty)
	r.RegisterFunc("length", testLength)
	r.RegisterFunc("lower", testLower)
	r.RegisterFunc("upper", testUpper)

	r.RegisterFunc("string", testString)
	r.RegisterFunc("number", testNumber)
	r.RegisterFunc("integer", testInteger)
	r.RegisterFunc("float", testFloat)
	r.RegisterFunc("boolean", testBoolean)
	r.RegisterFunc("sequence", testSequence)
	r.RegisterFunc("mapping", testMapping)
	r.RegisterFunc("none", testNone)
	r.RegisterFunc("true", testTrue)
	r.RegisterFunc("false", testFalse)

	r.RegisterFunc("even", testEven)
	r.RegisterFunc("odd", testOdd)
	r.RegisterFunc("divisibleby", testDivisibleBy)

	for _, name := range []string{"eq", "equalto", "=="} {
		r.RegisterFunc(name, compareTest(name, "=="))
	}
	for _, name := range []string{"ne", "!="} {
		r.RegisterFunc(name, compareTest(name, "!="))
	}
	for _, name := range []string{"lt", "lessthan", "<"} {
		r.RegisterFunc(name, compareTest(name, "<"))
	}
	for _, name := range []string{"le", "<="} {
		r.RegisterFunc(name, compareTest(name, "<="))
	}
	for _, name := range []string{"gt", "greaterthan", ">"} {
		r.RegisterFunc(name, compareTest(name, ">"))
	}
	for _, name := range []string{"ge", ">="} {
		r.RegisterFunc(name, compareTest(name, ">="))
	}
	r.RegisterFunc("in", testIn)
	r.RegisterFunc("sameas", testSameAs)

	r.RegisterFunc("json", testJSON)
	r.RegisterFunc("json_path", testJSONPath)
	r.RegisterFunc("json_schema", testJSONSchema)
	r.RegisterFunc("yaml", testYAML)
	r.RegisterFunc("uuid", testUUID)
}

func testContains(subject any, args ...any) (bool, error) {
	if err := checkArity("contains", args, 1); err != nil {
		return false, err
	}
	return Contains(subject, args[0]), nil
}

func testIn(subject any, args ...any) (bool, error) {
	if err := checkArity("in", args, 1); err != nil {
		return false, err
	}
	return Contains(args[0], subject), nil
}

// Contains reports whether container holds item. Strings match substrings,
// sequences match elements and mappings match keys.
func Contains(container, item any) bool {
	if s, ok := container.(string); ok {
		return strings.Contains(s, ToString(item))
	}
	rv := reflect.ValueOf(container)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if Equal(rv.Index(i).Interface(), item) {
				return true
			}
		}
		return false
	case reflect.Map:
		for _, key := range rv.MapKeys() {
			if Equal(key.Interface(), item) {
				return true
			}
		}
		return false
	}
	return strings.Contains(ToString(container), ToString(item))
}

func testStartsWith(subject any, args ...any) (bool, error) {
	if err := checkArity("startswith", args, 1); err != nil {
		return false, err
	}
	return strings.HasPrefix(ToString(subject), ToString(args[0])), nil
}

func testEndsWith(subject any, args ...any) (bool, error) {
	if err := checkArity("endswith", args, 1); err != nil {
		return false, err
	}
	return strings.HasSuffix(ToString(subject), ToString(args[0])), nil
}

func testMatches(subject any, args ...any) (bool, error) {
	if err := checkArity("matches", args, 1); err != nil {
		return false, err
	}
	pattern := ToString(args[0])
	if len(pattern) > 1 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") {
		pattern = pattern[1 : len(pattern)-1]
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid regex pattern: %w", err)
	}
	return re.MatchString(ToString(subject)), nil
}

func testEmpty(subject any, args ...any) (bool, error) {
	if err := checkArity("empty", args, 0); err != nil {
		return false, err
	}
	if subject == nil {
		return true, nil
	}
	return Length(subject) == 0, nil
}

func testLength(subject any, args ...any) (bool, error) {
	if err := checkArity("length", args, 1); err != nil {
		return false, err
	}
	want, ok := ToInt(args[0])
	if !ok {
		return false, fmt.Errorf("expected length must be a number, got %v", args[0])
	}
	n := Length(subject)
	if n < 0 {
		return false, fmt.Errorf("cannot get length of %T", subject)
	}
	return n == want, nil
}

func testLower(subject any, args ...any) (bool, error) {
	if err := checkArity("lower", args, 0); err != nil {
		return false, err
	}
	s, ok := subject.(string)
	return ok && s == strings.ToLower(s), nil
}

func testUpper(subject any, args ...any) (bool, error) {
	if err := checkArity("upper", args, 0); err != nil {
		return false, err
	}
	s, ok := subject.(string)
	return ok && s == strings.ToUpper(s), nil
}

func testString(subject any, args ...any) (bool, error) {
	if err := checkArity("string", args, 0); err != nil {
		return false, err
	}
	_, ok := subject.(string)
	return ok, nil
}

func testNumber(subject any, args ...any) (bool, error) {
	if err := checkArity("number", args, 0); err != nil {
		return false, err
	}
	return isInteger(subject) || isFloat(subject), nil
}

func testInteger(subject any, args ...any) (bool, error) {
	if err := checkArity("integer", args, 0); err != nil {
		return false, err
	}
	return isInteger(subject), nil
}

func testFloat(subject any, args ...any) (bool, error) {
	if err := checkArity("float", args, 0); err != nil {
		return false, err
	}
	return isFloat(subject), nil
}

func testBoolean(subject any, args ...any) (bool, error) {
	if err := checkArity("boolean", args, 0); err != nil {
		return false, err
	}
	_, ok := subject.(bool)
	return ok, nil
}

func testSequence(subject any, args ...any) (bool, error) {
	if err := checkArity("sequence", args, 0); err != nil {
		return false, err
	}
	switch reflect.ValueOf(subject).Kind() {
	case reflect.Slice, reflect.Array, reflect.String:
		return true, nil
	}
	return false, nil
}

func testMapping(subject any, args ...any) (bool, error) {
	if err := checkArity("mapping", args, 0); err != nil {
		return false, err
	}
	return reflect.ValueOf(subject).Kind() == reflect.Map, nil
}

func testNone(subject any, args ...any) (bool, error) {
	if err := checkArity("none", args, 0); err != nil {
		return false, err
	}
	return subject == nil, nil
}

func testTrue(subject any, args ...any) (bool, error) {
	if err := checkArity("true", args, 0); err != nil {
		return false, err
	}
	b, ok := subject.(bool)
	return ok && b, nil
}

func testFalse(subject any, args ...any) (bool, error) {
	if err := checkArity("false", args, 0); err != nil {
		return false, err
	}
	b, ok := subject.(bool)
	return ok && !b, nil
}

func testEven(subject any, args ...any) (bool, error) {
	if err := checkArity("even", args, 0); err != nil {
		return false, err
	}
	n, ok := integerValue(subject)
	return ok && n%2 == 0, nil
}

func testOdd(subject any, args ...any) (bool, error) {
	if err := checkArity("odd", args, 0); err != nil {
		return false, err
	}
	n, ok := integerValue(subject)
	return ok && n%2 != 0, nil
}

func testDivisibleBy(subject any, args ...any) (bool, error) {
	if err := checkArity("divisibleby", args, 1); err != nil {
		return false, err
	}
	d, ok := integerValue(args[0])
	if !ok || d == 0 {
		return false, fmt.Errorf("divisibleby needs a non-zero integer, got %v", args[0])
	}
	n, ok := integerValue(subject)
	return ok && n%d == 0, nil
}

func compareTest(name, op string) Func {
	return func(subject any, args ...any) (bool, error) {
		if err := checkArity(name, args, 1); err != nil {
			return false, err
		}
		switch op {
		case "==":
			return Equal(subject, args[0]), nil
		case "!=":
			return !Equal(subject, args[0]), nil
		}
		c, err := Compare(subject, args[0])
		if err != nil {
			return false, err
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
}

func testSameAs(subject any, args ...any) (bool, error) {
	if err := checkArity("sameas", args, 1); err != nil {
		return false, err
	}
	a, b := reflect.ValueOf(subject), reflect.ValueOf(args[0])
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid(), nil
	}
	if a.Type() != b.Type() {
		return false, nil
	}
	switch a.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Func, reflect.Chan:
		return a.Pointer() == b.Pointer(), nil
	}
	if a.Type().Comparable() {
		return subject == args[0], nil
	}
	return false, nil
}

func testJSON(subject any, args ...any) (bool, error) {
	if err := checkArity("json", args, 0); err != nil {
		return false, err
	}
	return json.Valid([]byte(ToString(subject))), nil
}

// testJSONPath checks that a gjson path exists in the subject document and,
// when a second argument is given, that the value found equals it.
func testJSONPath(subject any, args ...any) (bool, error) {
	if len(args) != 1 && len(args) != 2 {
		return false, &ArityError{Predicate: "json_path", Want: 1, Got: len(args)}
	}
	doc := ToString(subject)
	if !gjson.Valid(doc) {
		return false, nil
	}
	result := gjson.Get(doc, ToString(args[0]))
	if !result.Exists() {
		return false, nil
	}
	if len(args) == 1 {
		return true, nil
	}
	return Equal(result.Value(), args[1]), nil
}

func testJSONSchema(subject any, args ...any) (bool, error) {
	if err := checkArity("json_schema", args, 1); err != nil {
		return false, err
	}
	schemaLoader, err := schemaLoaderFor(ToString(args[0]))
	if err != nil {
		return false, err
	}
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(ToString(subject)))
	if err != nil {
		return false, fmt.Errorf("schema validation error: %w", err)
	}
	return result.Valid(), nil
}

// schemaLoaderFor accepts either an inline JSON schema or a path to one.
func schemaLoaderFor(schema string) (gojsonschema.JSONLoader, error) {
	trimmed := strings.TrimSpace(schema)
	if strings.HasPrefix(trimmed, "{") {
		return gojsonschema.NewStringLoader(trimmed), nil
	}
	data, err := os.ReadFile(filepath.Clean(trimmed))
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return gojsonschema.NewBytesLoader(data), nil
}

func testYAML(subject any, args ...any) (bool, error) {
	if err := checkArity("yaml", args, 0); err != nil {
		return false, err
	}
	var doc any
	return yaml.Unmarshal([]byte(ToString(subject)), &doc) == nil, nil
}

func testUUID(subject any, args ...any) (bool, error) {
	if err := checkArity("uuid", args, 0); err != nil {
		return false, err
	}
	_, err := uuid.Parse(ToString(subject))
	return err == nil, nil
}
