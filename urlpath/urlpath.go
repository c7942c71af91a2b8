package urlpath

import (
	"net/http"
	"strconv"

	"github.com/ts4z/wtapicks/he"
)

// IDPathValue extracts the "id" path variable from the request and parses it.
func IDPathValue(r *http.Request) (int64, error) {
	return Int64PathValue(r, "id")
}

func Int64PathValue(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		return -1, he.InvalidInputf("can't parse %s from url path: %v", name, err)
	}
	return id, nil
}

// Int64QueryValue parses a required integer query parameter.
func Int64QueryValue(r *http.Request, name string) (int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return -1, he.InvalidInputf("missing query parameter %s", name)
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return -1, he.InvalidInputf("can't parse query parameter %s: %v", name, err)
	}
	return id, nil
}
