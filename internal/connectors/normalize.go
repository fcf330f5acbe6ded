package connectors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
)

// UnknownErrorMessage — сообщение, когда из значения ничего внятного не достать.
const UnknownErrorMessage = "Unknown error"

// NormalizedError — единая форма ошибки, которую потребляют виджеты дашборда.
type NormalizedError struct {
	Message string    `json:"message"`
	Detail  any       `json:"detail,omitempty"`
	Status  int       `json:"status,omitempty"`
	Kind    ErrorKind `json:"kind"`
}

func (e NormalizedError) Error() string { return e.Message }

func unknownError() NormalizedError {
	return NormalizedError{Message: UnknownErrorMessage, Kind: KindUnknown}
}

// Normalize строит NormalizedError из любого значения и никогда не паникует.
// Порядок: строка -> поле message -> fmt.Stringer -> JSON -> "Unknown error".
func Normalize(v any) (out NormalizedError) {
	defer func() {
		if r := recover(); r != nil {
			out = unknownError()
		}
	}()

	if v == nil {
		return unknownError()
	}

	// 1. Строкоподобные значения
	if s, ok := stringLike(v); ok {
		return NormalizedError{Message: s, Kind: KindUnknown}
	}

	// 2. Значения с сообщением
	switch t := v.(type) {
	case NormalizedError:
		if t.Message == "" {
			t.Message = UnknownErrorMessage
		}
		return t
	case *NormalizedError:
		return Normalize(*t)
	}
	if err, ok := v.(error); ok {
		if ne, ok := fromError(err); ok {
			return ne
		}
	}
	if m, ok := v.(map[string]any); ok {
		if msg, ok := m["message"].(string); ok && msg != "" {
			ne := NormalizedError{Message: msg, Detail: m, Kind: KindUnknown}
			if status, ok := m["status"].(float64); ok {
				ne.Status = int(status)
			}
			return ne
		}
	}
	if m, ok := v.(map[string]string); ok {
		if msg := m["message"]; msg != "" {
			return NormalizedError{Message: msg, Detail: m, Kind: KindUnknown}
		}
	}
	if msg, ok := messageField(v); ok {
		return NormalizedError{Message: msg, Detail: v, Kind: KindUnknown}
	}

	// 3. Осмысленное строковое представление
	if s, ok := v.(fmt.Stringer); ok {
		if msg, ok := safeString(s); ok && msg != "" {
			return NormalizedError{Message: msg, Kind: KindUnknown}
		}
	}

	// 4. Структурная сериализация
	if b, ok := safeMarshal(v); ok {
		return NormalizedError{Message: string(b), Kind: KindUnknown}
	}

	// 5. Сентинел
	return unknownError()
}

func stringLike(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

// messageField достает строковое поле Message у структуры (или указателя на нее).
func messageField(v any) (string, bool) {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return "", false
	}
	f := rv.FieldByName("Message")
	if !f.IsValid() || f.Kind() != reflect.String || f.String() == "" {
		return "", false
	}
	return f.String(), true
}

func fromError(err error) (NormalizedError, bool) {
	var (
		statusErr *StatusError
		netErr    *NetworkError
		parseErr  *ParseError
		localErr  *LocalError
	)
	switch {
	case errors.As(err, &statusErr):
		msg := statusErr.Message
		if msg == "" {
			msg = http.StatusText(statusErr.Status)
		}
		return NormalizedError{
			Message: orUnknown(msg),
			Detail:  bodyDetail(statusErr.Body),
			Status:  statusErr.Status,
			Kind:    KindHTTP,
		}, true
	case errors.As(err, &netErr):
		msg := "Network error"
		if netErr.Timeout() {
			msg = "Request timed out"
		}
		if netErr.Err != nil {
			msg += ": " + netErr.Err.Error()
		}
		return NormalizedError{Message: msg, Kind: KindNetwork}, true
	case errors.As(err, &parseErr):
		return NormalizedError{Message: orUnknown(parseErr.Error()), Kind: KindParse}, true
	case errors.As(err, &localErr):
		return NormalizedError{Message: orUnknown(localErr.Error()), Kind: KindLocal}, true
	}

	msg, ok := safeString(errorStringer{err})
	if !ok || msg == "" {
		return NormalizedError{}, false
	}
	return NormalizedError{Message: msg, Kind: KindOf(err)}, true
}

type errorStringer struct{ err error }

func (e errorStringer) String() string { return e.err.Error() }

// bodyDetail отдает тело ответа как JSON, если оно валидно, иначе строкой.
func bodyDetail(body []byte) any {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	return trimmed
}

func orUnknown(msg string) string {
	if msg == "" {
		return UnknownErrorMessage
	}
	return msg
}

func safeString(s fmt.Stringer) (out string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			out, ok = "", false
		}
	}()
	return s.String(), true
}

func safeMarshal(v any) (out []byte, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			out, ok = nil, false
		}
	}()
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return b, true
}
