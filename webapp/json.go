package webapp

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/ts4z/wtapicks/he"
)

// Nobody sends us a megabyte on purpose.  The bulk player pastes are the
// biggest bodies, and they're a few dozen kilobytes.
const maxBodyBytes = 1 << 20

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return he.InvalidInputf("decoding json: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	if err != nil {
		he.SendErrorToHTTPClient(w, "marshal response", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writ, err := w.Write(bytes)
	if err != nil {
		log.Printf("error writing response to client: %v", err)
	} else if writ != len(bytes) {
		log.Println("short write to client")
	}
}

type okResponse struct {
	Success bool `json:"success"`
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, &okResponse{Success: true})
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
