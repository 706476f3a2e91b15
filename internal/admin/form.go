package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ValidationError reports rejected form fields, one message per field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records msg for field, keeping the first message per field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Err returns nil when nothing was recorded.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Merge folds err into e when it is a ValidationError and returns any other
// error untouched.
func (e *ValidationError) Merge(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		for k, v := range ve.Fields {
			e.Add(k, v)
		}
		return nil
	}
	return err
}

// Form is a submitted change form: field name to raw JSON value.
type Form map[string]json.RawMessage

func DecodeForm(r io.Reader) (Form, error) {
	var f Form
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if f == nil {
		f = Form{}
	}
	return f, nil
}

// Only rejects every key not listed in allowed.
func (f Form) Only(allowed []string) error {
	ok := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		ok[a] = struct{}{}
	}
	var ve ValidationError
	for k := range f {
		if _, found := ok[k]; !found {
			ve.Add(k, "unknown field")
		}
	}
	return ve.Err()
}

// String decodes a string field, reporting whether it was present.
func (f Form) String(key string) (string, bool) {
	raw, ok := f[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Prepopulate fills blank target fields from their sources, the way slugs
// are derived from names on the add form. Changes never prepopulate.
func (m *ModelAdmin) Prepopulate(f Form, change bool) {
	if change {
		return
	}
	for target, sources := range m.Prepopulated {
		if v, ok := f.String(target); ok && strings.TrimSpace(v) != "" {
			continue
		}
		var parts []string
		for _, src := range sources {
			if v, ok := f.String(src); ok && v != "" {
				parts = append(parts, v)
			}
		}
		if len(parts) == 0 {
			continue
		}
		raw, _ := json.Marshal(Slugify(strings.Join(parts, " ")))
		f[target] = raw
	}
}

// Slugify lowercases s and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Check validates value against validator tags and records a readable
// message for field on failure.
func (e *ValidationError) Check(field string, value any, tag string) {
	if tag == "" {
		return
	}
	if err := validate.Var(value, tag); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e.Add(field, message(verrs[0]))
			return
		}
		e.Add(field, err.Error())
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		return "ensure this value is at most " + fe.Param()
	case "gte":
		return "ensure this value is greater than or equal to " + fe.Param()
	case "lte":
		return "ensure this value is less than or equal to " + fe.Param()
	}
	return "invalid value (" + fe.Tag() + ")"
}
