package api

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
)

// Error is the failure half of the envelope. Code is a stable snake_case
// identifier clients switch on; Message is for humans.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "status", status, "requestId", payload.RequestID, "err", err)
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, ok(data, requestID))
}

// Created is used for stream creation; the body carries the new stream.
func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, ok(data, requestID))
}

// Paged writes one page of a list and its total in X-Total-Count.
func Paged(w http.ResponseWriter, data any, total int, requestID string) {
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	WriteJSON(w, http.StatusOK, ok(data, requestID))
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	fail(w, status, &Error{Code: code, Message: message}, requestID)
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details any, requestID string) {
	fail(w, status, &Error{Code: code, Message: message, Details: details}, requestID)
}

// Attachment sends a generated document (statement PDF, CSV export) as a
// download outside the JSON envelope.
func Attachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Warn("write attachment failed", "filename", filename, "err", err)
	}
}

func ok(data any, requestID string) Envelope {
	return Envelope{Success: true, Data: data, RequestID: requestID}
}

func fail(w http.ResponseWriter, status int, e *Error, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: e, RequestID: requestID})
}
