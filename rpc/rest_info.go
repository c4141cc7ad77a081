package rpc

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/riskgate-org/riskgate/node"
)

type infoProvider interface {
	Info() (*node.Info, error)
}

// InfoEndpoints registers "/info" which describes the node and its state.
func InfoEndpoints(n infoProvider, log *zerolog.Logger) RegistrarFunc {
	return func(r *mux.Router) {
		rw := &responseWriter{log: log}
		r.HandleFunc("/info", func(w http.ResponseWriter, _ *http.Request) {
			info, err := n.Info()
			if err != nil {
				rw.writeErrorResponse(w, err)
				return
			}
			rw.writeResponse(w, info)
		}).Methods(http.MethodGet, http.MethodOptions)
	}
}
