package repositories

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
)

// Columns maintained by the stores rather than by callers
const (
	columnID        = "id"
	columnCreatedAt = "created_at"
	columnUpdatedAt = "updated_at"
)

var timeType = reflect.TypeOf(time.Time{})

type column struct {
	name  string
	index int
}

// schema maps the db-tagged fields of a record type to its columns
type schema struct {
	typ     reflect.Type
	columns []column
	byName  map[string]int
}

var schemaCache sync.Map

func schemaFor[T any]() *schema {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if cached, ok := schemaCache.Load(typ); ok {
		return cached.(*schema)
	}

	s := &schema{typ: typ, byName: make(map[string]int)}
	for i := 0; i < typ.NumField(); i++ {
		name := typ.Field(i).Tag.Get("db")
		if name == "" || name == "-" {
			continue
		}
		s.byName[name] = len(s.columns)
		s.columns = append(s.columns, column{name: name, index: i})
	}
	if _, ok := s.byName[columnID]; !ok {
		panic(fmt.Sprintf("repositories: %s has no id column", typ))
	}

	actual, _ := schemaCache.LoadOrStore(typ, s)
	return actual.(*schema)
}

func (s *schema) names() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.name
	}
	return out
}

func (s *schema) has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

func (s *schema) field(rec any, name string) reflect.Value {
	return reflect.ValueOf(rec).Elem().Field(s.columns[s.byName[name]].index)
}

func (s *schema) id(rec any) string {
	return s.field(rec, columnID).String()
}

func (s *schema) setID(rec any, id string) {
	s.field(rec, columnID).SetString(id)
}

// touch stamps the time column with now when it is present on the record
func (s *schema) touch(rec any, name string, now time.Time, onlyIfZero bool) {
	if !s.has(name) {
		return
	}
	f := s.field(rec, name)
	if f.Type() != timeType {
		return
	}
	if onlyIfZero && !f.Interface().(time.Time).IsZero() {
		return
	}
	f.Set(reflect.ValueOf(now))
}

// stampCreate fills every zero time column of a new record
func (s *schema) stampCreate(rec any, now time.Time) {
	for _, c := range s.columns {
		s.touch(rec, c.name, now, true)
	}
}

// scanTargets returns pointers to every column field, in column order
func (s *schema) scanTargets(rec any) []any {
	rv := reflect.ValueOf(rec).Elem()
	out := make([]any, len(s.columns))
	for i, c := range s.columns {
		out[i] = rv.Field(c.index).Addr().Interface()
	}
	return out
}

// value returns the driver-level value of one column
func (s *schema) value(rec any, name string) (any, error) {
	return normalize(s.field(rec, name))
}

// values returns the driver-level values of the named columns
func (s *schema) values(rec any, names []string) ([]any, error) {
	out := make([]any, len(names))
	for i, name := range names {
		v, err := s.value(rec, name)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		out[i] = v
	}
	return out, nil
}

// changed lists the writable columns whose value differs between next and previous.
// A nil previous means every writable column.
func (s *schema) changed(next, previous any) ([]string, error) {
	var out []string
	for _, c := range s.columns {
		if c.name == columnID || c.name == columnCreatedAt || c.name == columnUpdatedAt {
			continue
		}
		if previous == nil || reflect.ValueOf(previous).IsNil() {
			out = append(out, c.name)
			continue
		}
		a, err := s.value(next, c.name)
		if err != nil {
			return nil, err
		}
		b, err := s.value(previous, c.name)
		if err != nil {
			return nil, err
		}
		if !sameValue(a, b) {
			out = append(out, c.name)
		}
	}
	return out, nil
}

// normalize reduces a field to a plain driver value: nil, string, bool, int64,
// float64 or time.Time. Named string types collapse to string and JSON columns
// to their text.
func normalize(v reflect.Value) (any, error) {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}

	if valuer, ok := v.Interface().(driver.Valuer); ok {
		out, err := valuer.Value()
		if err != nil {
			return nil, err
		}
		if b, ok := out.([]byte); ok {
			return string(b), nil
		}
		return out, nil
	}

	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	}
	return v.Interface(), nil
}

func sameValue(a, b any) bool {
	ta, aok := a.(time.Time)
	tb, bok := b.(time.Time)
	if aok && bok {
		return ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders normalized values; nil sorts first
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmpOrdered(x, y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmpOrdered(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func cmpOrdered[N int64 | float64](x, y N) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// deepCopy copies pointers and slices so stored records share no memory with callers
func deepCopy(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return v
		}
		n := reflect.New(v.Type().Elem())
		n.Elem().Set(deepCopy(v.Elem()))
		return n
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		n := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			n.Index(i).Set(deepCopy(v.Index(i)))
		}
		return n
	case reflect.Struct:
		n := reflect.New(v.Type()).Elem()
		n.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if n.Field(i).CanSet() {
				n.Field(i).Set(deepCopy(v.Field(i)))
			}
		}
		return n
	}
	return v
}

func clone[T any](rec *T) *T {
	out := new(T)
	reflect.ValueOf(out).Elem().Set(deepCopy(reflect.ValueOf(rec).Elem()))
	return out
}
