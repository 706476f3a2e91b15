package admin

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
)

// DefaultModelAdmin builds the unconfigured admin of a plain lookup model:
// every exported JSON field but the primary key is editable, in declaration
// order, and forms are bound by plain JSON decoding.
func DefaultModelAdmin(verboseName string, model any) *ModelAdmin {
	var rows []FieldRow
	for _, name := range jsonFields(reflect.TypeOf(model)) {
		rows = append(rows, Row(name))
	}
	return &ModelAdmin{
		VerboseName: verboseName,
		Fields:      rows,
		Binder:      JSONBinder{},
	}
}

func jsonFields(t reflect.Type) []string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	var out []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if name == "id" {
			continue
		}
		out = append(out, name)
	}
	return out
}

// JSONBinder decodes the form straight onto obj.
type JSONBinder struct{}

func (JSONBinder) Bind(_ context.Context, obj any, form Form, _ bool) error {
	raw, err := json.Marshal(form)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, obj); err != nil {
		var ve ValidationError
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) && te.Field != "" {
			ve.Add(te.Field, "invalid value")
			return &ve
		}
		ve.Add("__all__", err.Error())
		return &ve
	}
	return nil
}
