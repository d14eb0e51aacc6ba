package bridge

import (
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// validateConstraints checks the constraint tags of a struct (or pointer to
// one) and returns a 400 ProblemDetail listing every violation.
func validateConstraints(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	var errs []ValidationError
	collectConstraintErrors(rv, "", &errs)
	if len(errs) == 0 {
		return nil
	}

	return &ProblemDetail{
		Type:   "about:blank",
		Title:  "Validation Failed",
		Status: http.StatusBadRequest,
		Detail: fmt.Sprintf("%d constraint violation(s)", len(errs)),
		Errors: errs,
	}
}

func collectConstraintErrors(rv reflect.Value, prefix string, errs *[]ValidationError) {
	t := rv.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := fieldName(f)
		if name == "-" {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		fv := rv.Field(i)
		checkFieldConstraints(f, fv, path, errs)

		if fv.Kind() == reflect.Pointer && !fv.IsNil() {
			fv = fv.Elem()
		}
		if fv.Kind() == reflect.Struct && fv.Type().NumField() > 0 {
			collectConstraintErrors(fv, path, errs)
		}
	}
}

// fieldName is the name a violation is reported under: the binding tag for
// bound parameters, otherwise the JSON name.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"path", "query", "header", "cookie"} {
		if name := f.Tag.Get(tag); name != "" {
			return name
		}
	}
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

func checkFieldConstraints(f reflect.StructField, fv reflect.Value, path string, errs *[]ValidationError) {
	fail := func(msg string, val any) {
		*errs = append(*errs, ValidationError{Field: path, Message: msg, Value: val})
	}

	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return
		}
		fv = fv.Elem()
	}

	//exhaustive:ignore
	switch {
	case fv.Kind() == reflect.String:
		val := fv.String()
		if n, ok := intTag(f, "minLength"); ok && len(val) < n {
			fail(fmt.Sprintf("must be at least %d characters", n), val)
		}
		if n, ok := intTag(f, "maxLength"); ok && len(val) > n {
			fail(fmt.Sprintf("must be at most %d characters", n), val)
		}
		if expr := f.Tag.Get("pattern"); expr != "" {
			if re, err := cachedRegexp(expr); err == nil && !re.MatchString(val) {
				fail(fmt.Sprintf("must match pattern %s", expr), val)
			}
		}
		if tag := f.Tag.Get("enum"); tag != "" && !slices.Contains(strings.Split(tag, ","), val) {
			fail(fmt.Sprintf("must be one of [%s]", tag), val)
		}

	case isNumericKind(fv.Kind()):
		val := toFloat64(fv)
		if tag := f.Tag.Get("minimum"); tag != "" {
			if lower, err := strconv.ParseFloat(tag, 64); err == nil && val < lower {
				fail("must be at least "+tag, val)
			}
		}
		if tag := f.Tag.Get("maximum"); tag != "" {
			if upper, err := strconv.ParseFloat(tag, 64); err == nil && val > upper {
				fail("must be at most "+tag, val)
			}
		}

	case fv.Kind() == reflect.Slice:
		length := fv.Len()
		if n, ok := intTag(f, "minItems"); ok && length < n {
			fail(fmt.Sprintf("must have at least %d items", n), length)
		}
		if n, ok := intTag(f, "maxItems"); ok && length > n {
			fail(fmt.Sprintf("must have at most %d items", n), length)
		}
	}
}

func intTag(f reflect.StructField, key string) (int, bool) {
	tag := f.Tag.Get(key)
	if tag == "" {
		return 0, false
	}
	n, err := strconv.Atoi(tag)
	return n, err == nil
}

var regexpCache sync.Map // string -> *regexp.Regexp

func cachedRegexp(expr string) (*regexp.Regexp, error) {
	if re, ok := regexpCache.Load(expr); ok {
		return re.(*regexp.Regexp), nil //nolint:forcetypeassert // only *regexp.Regexp is stored
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	regexpCache.Store(expr, re)
	return re, nil
}

func isNumericKind(k reflect.Kind) bool {
	//exhaustive:ignore
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func toFloat64(v reflect.Value) float64 {
	//exhaustive:ignore
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	default:
		return v.Float()
	}
}
