package httpx

import (
	"encoding/json"
	"net/http"
)

// Status values carried in every response envelope. Clients branch on this
// field rather than on the HTTP status code alone.
const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// Envelope is the uniform response shape: {"status": ..., "data": ..., "message": ...}.
type Envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	body, err := json.Marshal(env)
	if err != nil {
		// best-effort error response; avoid writing partial JSON
		http.Error(w, `{"status":"ERROR","data":null,"message":"encode_error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

// Success writes a SUCCESS envelope with the given payload and message.
func Success(w http.ResponseWriter, status int, data any, message string) {
	write(w, status, Envelope{Status: StatusSuccess, Data: data, Message: message})
}

// Error writes an ERROR envelope. data carries optional detail such as
// field-level validation messages.
func Error(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Status: StatusError, Data: data, Message: message})
}
