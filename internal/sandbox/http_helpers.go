package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// readJSON decodes a single JSON value from the request body.
func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	maxBytes := 1048576 // one megabyte
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must have only a single json value")
	}
	return nil
}

// writeJSON writes data as a JSON response with the given status code. A
// value that cannot be encoded becomes a 500; a failed write means the client
// has gone and is dropped.
func writeJSON(w http.ResponseWriter, status int, data any) {
	out, err := json.Marshal(data)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal JSON: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(out)
}
