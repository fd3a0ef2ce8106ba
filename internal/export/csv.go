// Package export renders visible rows as CSV downloads. It never queries on
// its own: callers hand it the rows produced by the same predicate-filtered
// listing path the JSON endpoints use.
package export

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titler = cases.Title(language.English)

// CSV streams the rows as a CSV attachment. Columns derive from the row
// struct's json tags; nested slices, maps, and structs other than time.Time
// are left out.
func CSV[T any](w http.ResponseWriter, filename string, rows []T) error {
	var zero T
	fields := exportableFields(reflect.TypeOf(zero))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.header
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		v := reflect.ValueOf(row)
		record := make([]string, len(fields))
		for i, f := range fields {
			record[i] = formatValue(v.Field(f.index))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type field struct {
	index  int
	header string
}

func exportableFields(t reflect.Type) []field {
	var fields []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := strings.Split(sf.Tag.Get("json"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		if !exportableKind(sf.Type) {
			continue
		}
		fields = append(fields, field{index: i, header: humanize(tag)})
	}
	return fields
}

func exportableKind(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return false
	case reflect.Struct:
		return t == reflect.TypeOf(time.Time{})
	default:
		return true
	}
}

func humanize(tag string) string {
	return titler.String(strings.ReplaceAll(tag, "_", " "))
}

func formatValue(v reflect.Value) string {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if t, ok := v.Interface().(time.Time); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return fmt.Sprint(v.Interface())
}
