// Package he carries error kinds from the core out to HTTP clients.
package he

import (
	"encoding/json"
	"errors"
	"fmt"
	"log" // all kids love log
	"net/http"
)

// Kind classifies a failure for the caller.
type Kind string

const (
	KindInternal           Kind = "Internal"
	KindNotFound           Kind = "NotFound"
	KindUnauthorized       Kind = "Unauthorized"
	KindInsufficientBudget Kind = "InsufficientBudget"
	KindInvalidInput       Kind = "InvalidInput"
)

var kindToCode = map[Kind]int{
	KindInternal:           http.StatusInternalServerError,
	KindNotFound:           http.StatusNotFound,
	KindUnauthorized:       http.StatusUnauthorized,
	KindInsufficientBudget: http.StatusBadRequest,
	KindInvalidInput:       http.StatusBadRequest,
}

// HTTPError is an error with a kind and the HTTP code that goes with it.
type HTTPError struct {
	kind Kind
	code int
	err  error
}

func newKinded(kind Kind, err error) *HTTPError {
	return &HTTPError{kind: kind, code: kindToCode[kind], err: err}
}

func NotFoundf(f string, more ...any) *HTTPError {
	return newKinded(KindNotFound, fmt.Errorf(f, more...))
}

func Unauthorizedf(f string, more ...any) *HTTPError {
	return newKinded(KindUnauthorized, fmt.Errorf(f, more...))
}

func InsufficientBudgetf(f string, more ...any) *HTTPError {
	return newKinded(KindInsufficientBudget, fmt.Errorf(f, more...))
}

func InvalidInputf(f string, more ...any) *HTTPError {
	return newKinded(KindInvalidInput, fmt.Errorf(f, more...))
}

// HTTPCodedErrorf makes an error with an explicit code, for the odd cases
// that don't fit a kind (405 and friends).
func HTTPCodedErrorf(code int, f string, more ...any) *HTTPError {
	return &HTTPError{
		kind: KindInternal,
		code: code,
		err:  fmt.Errorf(f, more...),
	}
}

func (e *HTTPError) Error() string {
	return e.err.Error()
}

func (e *HTTPError) Unwrap() error {
	return e.err
}

func (e *HTTPError) Kind() Kind {
	return e.kind
}

func (e *HTTPError) Code() int {
	return e.code
}

// KindOf finds the kind of err anywhere in its wrap chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.kind
	}
	return KindInternal
}

// Is reports whether err has the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    Kind   `json:"kind"`
}

// SendErrorToHTTPClient sends err as a JSON error payload.  If it happens to
// be one of ours, we can include a better response code; otherwise, client
// gets 500 and it's on us.
func SendErrorToHTTPClient(w http.ResponseWriter, while string, err error) {
	code := http.StatusInternalServerError
	kind := KindInternal
	var he *HTTPError
	if errors.As(err, &he) {
		code = he.code
		kind = he.kind
	}
	txt := fmt.Sprintf("can't %s: %v", while, err)
	log.Println(txt)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(&errorBody{Error: txt, Kind: kind}); err != nil {
		log.Printf("error writing error to client: %v", err)
	}
}
