package postgres

import (
	"reflect"
	"slices"
	"sync"
)

// column is a db-tagged field addressed by its index path, so fields
// promoted from embedded structs such as entity.BaseEntity are read with
// a single FieldByIndex.
type column struct {
	name  string
	index []int
}

// columnPlans caches the column list per struct type.
var columnPlans sync.Map // reflect.Type -> []column

func columnsOf(t reflect.Type) []column {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := columnPlans.Load(t); ok {
		return cached.([]column)
	}

	var cols []column
	if t.Kind() == reflect.Struct {
		cols = collectColumns(t, nil)
	}
	actual, _ := columnPlans.LoadOrStore(t, cols)
	return actual.([]column)
}

func collectColumns(t reflect.Type, prefix []int) []column {
	var cols []column
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		path := append(slices.Clone(prefix), i)

		if f.Anonymous {
			if f.Type.Kind() == reflect.Struct {
				cols = append(cols, collectColumns(f.Type, path)...)
			}
			continue
		}

		tag := f.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, column{name: tag, index: path})
	}
	return cols
}

// ExtractDBColumns lists the db columns of T in field order, embedded
// structs first where they appear.
//
//	cols := ExtractDBColumns[product.Product]()
//	// ["id", "version", "created_at", "updated_at", "sku", ...]
func ExtractDBColumns[T any]() []string {
	cols := columnsOf(reflect.TypeFor[T]())
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// StructToMap maps db column names to the field values of v.
// It returns nil for anything that is not a struct or a non-nil pointer to one.
func StructToMap(v any) map[string]any {
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

	cols := columnsOf(rv.Type())
	res := make(map[string]any, len(cols))
	for _, c := range cols {
		res[c.name] = rv.FieldByIndex(c.index).Interface()
	}
	return res
}
