package bridge

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Bind copies path parameters, query values, headers and cookies into the
// tagged fields of target, which must be a pointer to a struct:
//
//	type ListParams struct {
//	    OrgID string        `path:"org_id"`
//	    Limit int           `query:"limit" default:"20"`
//	    Token string        `header:"X-Auth-Token"`
//	    Theme string        `cookie:"theme"`
//	    Wait  time.Duration `query:"wait"`
//	}
//
// A missing value falls back to the field's default tag. After binding, the
// constraint tags (minLength, maxLength, pattern, minimum, maximum, enum,
// minItems, maxItems) are checked. Conversion failures and constraint
// violations are BadRequest faults.
func Bind(req *Request, target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return internalFault("bind target", fmt.Errorf("bridge: Bind target must be a non-nil struct pointer, got %T", target))
	}
	v = v.Elem()

	var cookies map[string]string

	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		field := v.Field(i)

		if name := f.Tag.Get("path"); name != "" {
			if val := req.Param(name); val != "" {
				if err := setFieldValue(field, val); err != nil {
					return bindFault(ErrBindPath, name, err)
				}
			}
		}

		if name := f.Tag.Get("query"); name != "" {
			val := req.QueryValue(name)
			if val == "" {
				val = f.Tag.Get("default")
			}
			if val != "" {
				if err := setFieldValue(field, val); err != nil {
					return bindFault(ErrBindQuery, name, err)
				}
			}
		}

		if name := f.Tag.Get("header"); name != "" {
			val := req.Header.Get(name)
			if val == "" {
				val = f.Tag.Get("default")
			}
			if val != "" {
				if err := setFieldValue(field, val); err != nil {
					return bindFault(ErrBindHeader, name, err)
				}
			}
		}

		if name := f.Tag.Get("cookie"); name != "" {
			if cookies == nil {
				cookies = requestCookies(req)
			}
			val := cookies[name]
			if val == "" {
				val = f.Tag.Get("default")
			}
			if val != "" {
				if err := setFieldValue(field, val); err != nil {
					return bindFault(ErrBindCookie, name, err)
				}
			}
		}
	}

	return validateConstraints(target)
}

func bindFault(sentinel error, name string, err error) error {
	return badRequest(http.StatusBadRequest, fmt.Sprintf("invalid value for %s", name),
		fmt.Errorf("%w: %s: %w", sentinel, name, err))
}

// requestCookies parses the Cookie header. The first occurrence of a name wins.
func requestCookies(req *Request) map[string]string {
	out := make(map[string]string)
	raw := req.Header.Get("Cookie")
	if raw == "" {
		return out
	}
	cookies, err := http.ParseCookie(raw)
	if err != nil {
		// Lenient split: keep every well-formed pair.
		for part := range strings.SplitSeq(raw, ";") {
			name, val, ok := strings.Cut(strings.TrimSpace(part), "=")
			if !ok || name == "" {
				continue
			}
			if _, seen := out[name]; !seen {
				out[name] = strings.Trim(val, `"`)
			}
		}
		return out
	}
	for _, c := range cookies {
		if _, seen := out[c.Name]; !seen {
			out[c.Name] = c.Value
		}
	}
	return out
}

// setFieldValue sets a reflect.Value from a string, supporting common types.
func setFieldValue(field reflect.Value, value string) error {
	if field.Type() == reflect.TypeFor[time.Duration]() {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	if field.Kind() == reflect.Pointer {
		elem := reflect.New(field.Type().Elem())
		if err := setFieldValue(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	//exhaustive:ignore
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported type: %s", field.Type())
		}
		parts := strings.Split(value, ",")
		s := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, p := range parts {
			s.Index(i).SetString(strings.TrimSpace(p))
		}
		field.Set(s)
	default:
		return fmt.Errorf("unsupported type: %s", field.Type())
	}
	return nil
}
