package connectors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Shape — форма, в которой бэкенд отдал список.
type Shape string

const (
	ShapePaged           Shape = "paged"             // {"items": [...], "total": N}
	ShapeBare            Shape = "bare"              // [...]
	ShapeFirstArrayField Shape = "first_array_field" // {"agents": [...], ...}
)

// ListPage — распознанная страница списка. Элементы не трогаем.
type ListPage struct {
	Items      []json.RawMessage
	Total      int
	TotalKnown bool // total пришел от бэкенда, а не посчитан по длине
	Shape      Shape
}

type shapeStrategy struct {
	shape Shape
	match func(raw []byte) (ListPage, bool)
}

// Стратегии применяются строго в этом порядке, первая подошедшая выигрывает.
var listStrategies = []shapeStrategy{
	{shape: ShapePaged, match: matchPaged},
	{shape: ShapeBare, match: matchBare},
	{shape: ShapeFirstArrayField, match: matchFirstArrayField},
}

var (
	pagedItemKeys  = []string{"items", "data", "results"}
	pagedTotalKeys = []string{"total", "total_count"}
)

// DecodeList распознает форму списка. Ничего не подошло -> *ParseError.
func DecodeList(raw json.RawMessage) (ListPage, error) {
	trimmed := bytes.TrimSpace(raw)
	for _, s := range listStrategies {
		if page, ok := s.match(trimmed); ok {
			page.Shape = s.shape
			return page, nil
		}
	}
	return ListPage{}, &ParseError{Err: ErrNoListShape}
}

// DecodeItems декодирует сырые элементы в типизированные DTO.
func DecodeItems[T any](items []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(items))
	for i, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, &ParseError{Err: fmt.Errorf("item %d: %w", i, err)}
		}
		out = append(out, v)
	}
	return out, nil
}

func matchPaged(raw []byte) (ListPage, bool) {
	if !isObject(raw) {
		return ListPage{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ListPage{}, false
	}

	total, ok := totalFrom(fields)
	if !ok {
		return ListPage{}, false
	}
	for _, key := range pagedItemKeys {
		if items, ok := decodeArray(fields[key]); ok {
			return ListPage{Items: items, Total: total, TotalKnown: true}, true
		}
	}
	return ListPage{}, false
}

func matchBare(raw []byte) (ListPage, bool) {
	items, ok := decodeArray(raw)
	if !ok {
		return ListPage{}, false
	}
	return ListPage{Items: items, Total: len(items)}, true
}

// matchFirstArrayField берет первое поле-массив в порядке документа,
// поэтому объект читается потоково, а не через map.
func matchFirstArrayField(raw []byte) (ListPage, bool) {
	if !isObject(raw) {
		return ListPage{}, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil { // '{'
		return ListPage{}, false
	}

	var (
		items []json.RawMessage
		found bool
		rest  = map[string]json.RawMessage{}
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return ListPage{}, false
		}
		key, ok := tok.(string)
		if !ok {
			return ListPage{}, false
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return ListPage{}, false
		}
		if !found {
			if arr, ok := decodeArray(value); ok {
				items, found = arr, true
				continue
			}
		}
		rest[key] = value
	}
	if _, err := dec.Token(); err != nil && err != io.EOF { // '}'
		return ListPage{}, false
	}
	if !found {
		return ListPage{}, false
	}

	page := ListPage{Items: items, Total: len(items)}
	if total, ok := totalFrom(rest); ok {
		page.Total, page.TotalKnown = total, true
	}
	return page, true
}

func totalFrom(fields map[string]json.RawMessage) (int, bool) {
	for _, key := range pagedTotalKeys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil && n >= 0 {
			return int(n), true
		}
	}
	return 0, false
}

func decodeArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, false
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return items, true
}

func isObject(raw []byte) bool {
	return len(raw) > 0 && raw[0] == '{'
}
