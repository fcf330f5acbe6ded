package domain

import (
	"encoding/json"
	"net/url"
)

// ListResult — страница списка в том виде, в котором ее отдал бэкенд.
// Элементы не декодируются: DTO проходят насквозь.
type ListResult struct {
	Items      []json.RawMessage `json:"items"`
	Total      int               `json:"total"`
	Shape      string            `json:"shape"`
	Pagination PaginationParams  `json:"pagination"`
	TimeRange  TimeRange         `json:"time_range"`
}

// MergeValues склеивает несколько наборов query-параметров. Последний выигрывает.
func MergeValues(sets ...url.Values) url.Values {
	out := url.Values{}
	for _, set := range sets {
		for k, vs := range set {
			out[k] = append([]string(nil), vs...)
		}
	}
	return out
}
