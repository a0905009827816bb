package core

// decode.go turns a fetched body into a Payload.
//
// JSON is tried first. A top-level object whose "data" value is an array is
// unwrapped; anything else is tabulated as a whole. When the JSON cannot be
// parsed or is not tabular, the body is read as an xlsx workbook.
//
// JSON is decoded token by token so that object keys keep document order;
// that order becomes the column order of the spreadsheet.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Decode interprets body as JSON, falling back to an xlsx workbook.
func Decode(body []byte) (*Payload, error) {
	p, jsonErr := DecodeJSON(body)
	if jsonErr == nil {
		return p, nil
	}

	p, xlsxErr := DecodeWorkbook(body)
	if xlsxErr == nil {
		return p, nil
	}

	return nil, fmt.Errorf("not JSON (%v) and not a spreadsheet (%v)", jsonErr, xlsxErr)
}

// DecodeJSON parses body and tabulates it.
func DecodeJSON(body []byte) (*Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	v, err := readJSONValue(dec, 0)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("parse json: unexpected data after top-level value")
	}

	if obj, ok := v.(*jsonObject); ok {
		if data, ok := obj.get("data"); ok {
			if list, ok := data.([]any); ok {
				v = list
			}
		}
	}

	return tabulate(v)
}

// jsonObject is a JSON object that remembers key order.
type jsonObject struct {
	keys   []string
	values map[string]any
}

func newJSONObject() *jsonObject {
	return &jsonObject{values: make(map[string]any)}
}

func (o *jsonObject) set(key string, v any) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

func (o *jsonObject) get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// MarshalJSON writes the object with its original key order.
func (o *jsonObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// maxJSONDepth bounds container nesting, matching encoding/json.
const maxJSONDepth = 10000

var errJSONTooDeep = errors.New("json nesting exceeds maximum depth")

func readJSONValue(dec *json.Decoder, depth int) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		if t == '{' || t == '[' {
			if depth >= maxJSONDepth {
				return nil, errJSONTooDeep
			}
		}
		switch t {
		case '{':
			obj := newJSONObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not string", keyTok)
				}
				v, err := readJSONValue(dec, depth+1)
				if err != nil {
					return nil, err
				}
				obj.set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			list := []any{}
			for dec.More() {
				v, err := readJSONValue(dec, depth+1)
				if err != nil {
					return nil, err
				}
				list = append(list, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case json.Number:
		return numberValue(t), nil
	default:
		// string, bool, nil
		return t, nil
	}
}

func numberValue(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func isScalar(v any) bool {
	switch v.(type) {
	case *jsonObject, []any:
		return false
	}
	return true
}

// cellValue flattens nested JSON into compact text so every cell is a scalar.
func cellValue(v any) any {
	if isScalar(v) {
		return v
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// tabulate converts a decoded JSON value into rows and columns:
//
//	[{...}, {...}]        records; columns in first-seen key order
//	[[...], [...]]        positional; columns "0".."n-1"
//	[1, "a", ...]         one column "0"
//	{"a": [...], ...}     column oriented; scalars are broadcast
//	{"a": {...}, ...}     outer keys are columns, inner keys are rows
//
// Anything else, such as an object of scalars, is not tabular.
func tabulate(v any) (*Payload, error) {
	switch t := v.(type) {
	case []any:
		return tabulateList(t)
	case *jsonObject:
		return tabulateObject(t)
	default:
		return nil, fmt.Errorf("%w: top-level %T", ErrNotTabular, v)
	}
}

func tabulateList(list []any) (*Payload, error) {
	if len(list) == 0 {
		return &Payload{}, nil
	}

	switch list[0].(type) {
	case *jsonObject:
		var cols []string
		seen := make(map[string]int)
		for i, item := range list {
			obj, ok := item.(*jsonObject)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is not an object", ErrNotTabular, i)
			}
			for _, k := range obj.keys {
				if _, ok := seen[k]; !ok {
					seen[k] = len(cols)
					cols = append(cols, k)
				}
			}
		}
		records := make([][]any, len(list))
		for i, item := range list {
			obj := item.(*jsonObject)
			rec := make([]any, len(cols))
			for _, k := range obj.keys {
				rec[seen[k]] = cellValue(obj.values[k])
			}
			records[i] = rec
		}
		return &Payload{Columns: cols, Records: records}, nil

	case []any:
		width := 0
		for i, item := range list {
			arr, ok := item.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is not an array", ErrNotTabular, i)
			}
			if len(arr) > width {
				width = len(arr)
			}
		}
		records := make([][]any, len(list))
		for i, item := range list {
			arr := item.([]any)
			rec := make([]any, width)
			for j, cell := range arr {
				rec[j] = cellValue(cell)
			}
			records[i] = rec
		}
		return &Payload{Columns: positionalColumns(width), Records: records}, nil

	default:
		records := make([][]any, len(list))
		for i, item := range list {
			if !isScalar(item) {
				return nil, fmt.Errorf("%w: element %d mixes scalars and containers", ErrNotTabular, i)
			}
			records[i] = []any{item}
		}
		return &Payload{Columns: positionalColumns(1), Records: records}, nil
	}
}

func tabulateObject(obj *jsonObject) (*Payload, error) {
	if len(obj.keys) == 0 {
		return &Payload{}, nil
	}

	var arrays, objects, scalars int
	length := -1
	for _, k := range obj.keys {
		switch t := obj.values[k].(type) {
		case []any:
			arrays++
			if length >= 0 && len(t) != length {
				return nil, fmt.Errorf("%w: column %q has %d values, want %d", ErrNotTabular, k, len(t), length)
			}
			length = len(t)
		case *jsonObject:
			objects++
		default:
			scalars++
		}
	}

	switch {
	case arrays > 0 && objects == 0:
		records := make([][]any, length)
		for i := range records {
			rec := make([]any, len(obj.keys))
			for j, k := range obj.keys {
				if arr, ok := obj.values[k].([]any); ok {
					rec[j] = cellValue(arr[i])
				} else {
					rec[j] = obj.values[k]
				}
			}
			records[i] = rec
		}
		return &Payload{Columns: append([]string(nil), obj.keys...), Records: records}, nil

	case objects > 0 && arrays == 0 && scalars == 0:
		var rowKeys []string
		rowIdx := make(map[string]int)
		for _, k := range obj.keys {
			inner := obj.values[k].(*jsonObject)
			for _, rk := range inner.keys {
				if _, ok := rowIdx[rk]; !ok {
					rowIdx[rk] = len(rowKeys)
					rowKeys = append(rowKeys, rk)
				}
			}
		}
		records := make([][]any, len(rowKeys))
		for i := range records {
			records[i] = make([]any, len(obj.keys))
		}
		for j, k := range obj.keys {
			inner := obj.values[k].(*jsonObject)
			for _, rk := range inner.keys {
				records[rowIdx[rk]][j] = cellValue(inner.values[rk])
			}
		}
		return &Payload{Columns: append([]string(nil), obj.keys...), Records: records}, nil
	}

	return nil, fmt.Errorf("%w: object of scalars or mixed values", ErrNotTabular)
}

func positionalColumns(n int) []string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = strconv.Itoa(i)
	}
	return cols
}
