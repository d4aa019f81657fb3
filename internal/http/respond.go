package httpx

import (
	"encoding/json"
	"net/http"
)

// envelope is the uniform response wrapper used by every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

// writeSuccess writes a success envelope with status code.
func writeSuccess(w http.ResponseWriter, status int, data any, message string) {
	writeEnvelope(w, status, envelope{Success: true, Data: data, Message: message})
}

// writeFailure writes a failure envelope with a null data field.
func writeFailure(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, envelope{Success: false, Message: message})
}

func writeEnvelope(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
