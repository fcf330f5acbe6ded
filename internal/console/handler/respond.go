package handler

import (
	"encoding/json"
	"net/http"

	"github.com/xela07ax/cylestio-dashboard/internal/connectors"
)

// ErrorBody — фиксированная форма ошибки прокси и служебных роутов.
type ErrorBody struct {
	Error string `json:"error"`
}

// UpstreamObserver считает отказы бэкенда по нормализованной категории.
type UpstreamObserver interface {
	ObserveUpstreamError(kind connectors.ErrorKind)
}

type nopObserver struct{}

func (nopObserver) ObserveUpstreamError(connectors.ErrorKind) {}

func observerOrNop(o UpstreamObserver) UpstreamObserver {
	if o == nil {
		return nopObserver{}
	}
	return o
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorBody{Error: msg})
}
