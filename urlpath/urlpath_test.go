package urlpath

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts4z/wtapicks/he"
)

func TestIDPathValue(t *testing.T) {
	var got int64
	var gotErr error
	mux := http.NewServeMux()
	mux.HandleFunc("GET /things/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = IDPathValue(r)
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/17", nil))
	require.NoError(t, gotErr)
	assert.Equal(t, int64(17), got)

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/seventeen", nil))
	assert.True(t, he.Is(gotErr, he.KindInvalidInput))
}

func TestInt64QueryValue(t *testing.T) {
	id, err := Int64QueryValue(httptest.NewRequest(http.MethodGet, "/?tournamentId=4", nil), "tournamentId")
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	_, err = Int64QueryValue(httptest.NewRequest(http.MethodGet, "/", nil), "tournamentId")
	assert.True(t, he.Is(err, he.KindInvalidInput))

	_, err = Int64QueryValue(httptest.NewRequest(http.MethodGet, "/?tournamentId=x", nil), "tournamentId")
	assert.True(t, he.Is(err, he.KindInvalidInput))
}
