package narrative

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var ErrMalformedJSON = errors.New("malformed JSON")

var measureType = reflect.TypeOf(Measure{})

// DecodeRecord fills the struct dst from an extractor JSON object. Unlike
// json.Unmarshal it never rejects a well-formed document: a field whose value
// has the wrong type is left at its zero value, a record field that is not a
// JSON object stays nil, and a document that is not an object leaves dst
// zeroed. Only syntactically broken JSON is an error.
func DecodeRecord(data []byte, dst interface{}) error {
	if !json.Valid(data) {
		return ErrMalformedJSON
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("narrative: DecodeRecord needs a non-nil struct pointer, got %T", dst)
	}
	record := rv.Elem()
	record.Set(reflect.Zero(record.Type()))

	var fields map[string]json.RawMessage
	if !isObject(data) || json.Unmarshal(data, &fields) != nil {
		return nil
	}

	recordType := record.Type()
	for i := 0; i < recordType.NumField(); i++ {
		sf := recordType.Field(i)
		name := fieldName(sf)
		if name == "" {
			continue
		}
		raw, ok := lookupField(fields, name)
		if !ok {
			continue
		}
		field := record.Field(i)
		if isRecordPointer(sf.Type) && !isObject(raw) {
			continue
		}
		if err := json.Unmarshal(raw, field.Addr().Interface()); err != nil {
			field.Set(reflect.Zero(sf.Type))
		}
	}
	return nil
}

func fieldName(sf reflect.StructField) string {
	if !sf.IsExported() {
		return ""
	}
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return sf.Name
}

// lookupField matches keys the way encoding/json does: exact first, then
// case-insensitively.
func lookupField(fields map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	if raw, ok := fields[name]; ok {
		return raw, true
	}
	for key, raw := range fields {
		if strings.EqualFold(key, name) {
			return raw, true
		}
	}
	return nil, false
}

// isRecordPointer reports optional nested records. *Measure is excluded since
// it decodes any literal.
func isRecordPointer(t reflect.Type) bool {
	return t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct && t.Elem() != measureType
}

func isObject(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '{'
}

func (v *Vitals) UnmarshalJSON(data []byte) error {
	return DecodeRecord(data, v)
}

func (l *Labs) UnmarshalJSON(data []byte) error {
	return DecodeRecord(data, l)
}

func (data *ClinicalData) UnmarshalJSON(b []byte) error {
	return DecodeRecord(b, data)
}

func (c *EvaluatedCriterion) UnmarshalJSON(data []byte) error {
	return DecodeRecord(data, c)
}

func (d *Decision) UnmarshalJSON(data []byte) error {
	return DecodeRecord(data, d)
}

func (f *Features) UnmarshalJSON(data []byte) error {
	return DecodeRecord(data, f)
}

func (r *Results) UnmarshalJSON(data []byte) error {
	return DecodeRecord(data, r)
}
