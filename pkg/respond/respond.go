package respond

import (
	"encoding/json"
	"net/http"
)

// Problem is the error body every endpoint answers with.
type Problem struct {
	Error string `json:"error"`
	Op    string `json:"op,omitempty"`
	ID    int64  `json:"id,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func Error(w http.ResponseWriter, r *http.Request, code int, message string) {
	JSON(w, r, code, Problem{Error: message})
}

// OpError is Error with the failed operation and the task it concerned.
func OpError(w http.ResponseWriter, r *http.Request, code int, op string, id int64, message string) {
	JSON(w, r, code, Problem{Error: message, Op: op, ID: id})
}

// Created answers 201 with a Location header.
func Created(w http.ResponseWriter, r *http.Request, location string, data interface{}) {
	w.Header().Set("Location", location)
	JSON(w, r, http.StatusCreated, data)
}
