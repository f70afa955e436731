package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/enemy"
	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
)

const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError reports err as an apperrors.Payload with the status of its
// code.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	p := apperrors.ToPayload(err)
	if errors.Is(err, enemy.ErrSquadTooLarge) {
		p.Code = apperrors.CodeInvalidArgument
	}
	status := p.Code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.sugar.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		s.sugar.Debugf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, p)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, fmt.Sprintf("decode %s body", r.URL.Path), err)
	}
	return nil
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
