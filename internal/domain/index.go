package domain

import (
	"encoding/json"
	"time"
)

// IndexDocument — элемент списка бэкенда, подготовленный к записи в индекс.
type IndexDocument struct {
	Resource  string          `json:"resource"`
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	IndexedAt time.Time       `json:"indexed_at"`
}
