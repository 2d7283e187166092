// Package responses holds the JSON and PDF wire shapes of the document server API.
package responses

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// Envelope wraps successful answers: {"data": ...}
type Envelope[T any] struct {
	Data T `json:"data"`
}

// Message is an error answer. The server sends either message or reason.
type Message struct {
	Type    string `json:"type,omitempty"` // "error", etc
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Text is the human readable part of m
func (m Message) Text() string {
	if m.Message != "" {
		return m.Message
	}
	return m.Reason
}

// ParseMessage reads an error body. ok is false if body is not a JSON Message with text
func ParseMessage(body []byte) (Message, bool) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return Message{}, false
	}
	return m, strings.TrimSpace(m.Text()) != ""
}

// EncodeWriteJSON Encode & Write Payload as JSON Stream to the Response
func EncodeWriteJSON(w http.ResponseWriter, HTTPStatusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatusCode) // Response Header Sent & Frozen
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[ERROR] failed to write JSON Stream to Response: %v", err)
	}
}

// WriteData answers 200 with data inside an Envelope
func WriteData[T any](w http.ResponseWriter, data T) {
	EncodeWriteJSON(w, http.StatusOK, Envelope[T]{Data: data})
}

// WriteSimpleErrorJSON wraps msg into an error Message
func WriteSimpleErrorJSON(w http.ResponseWriter, HTTPStatusCode int, msg string) {
	EncodeWriteJSON(w, HTTPStatusCode, Message{Type: "error", Message: msg})
}
