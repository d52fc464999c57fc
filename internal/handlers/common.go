package handlers

import (
	"encoding/json"
	"net/http"
)

// DetailResponse is the error payload shape; the client surfaces the
// detail message verbatim.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// respondJSON writes a JSON body with the given status.
func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// respondDetail sends an error response.
func respondDetail(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, DetailResponse{Detail: message})
}
