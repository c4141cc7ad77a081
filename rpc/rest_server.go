package rpc

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/riskgate-org/riskgate/metrics"
)

const (
	headerContentType = "Content-Type"
	applicationJson   = "application/json"
	applicationCBOR   = "application/cbor"

	// MaxBodySize is the default request body limit of the REST server.
	MaxBodySize int64 = 4 * 1024 * 1024
)

// @title           riskgate node API
// @version         1.0
// @description     Submits transaction orders and queries the risk ledgers of a riskgate node.

// @BasePath  /api/v1

var allowedCORSHeaders = []string{"Accept", "Accept-Language", "Content-Language", "Origin", headerContentType}

type (
	// Registrar registers new HTTP handlers for given router.
	Registrar interface {
		Register(r *mux.Router)
	}

	// RegistrarFunc type is an adapter to allow the use of ordinary function as Registrar.
	RegistrarFunc func(r *mux.Router)
)

/*
NewRESTServer creates the HTTP server of the node API. Registrars add their
routes under the "/api/v1" prefix, the metrics registry (when not nil) is
exposed in Prometheus format on "/metrics".
*/
func NewRESTServer(addr string, maxBodySize int64, reg *metrics.Registry, log *zerolog.Logger, registrars ...Registrar) *http.Server {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(http.NotFound)
	if reg != nil {
		r.Handle("/metrics", reg.PrometheusHandler()).Methods(http.MethodGet)
	}

	apiV1Router := r.PathPrefix("/api/v1").Subrouter()
	apiV1Router.Use(
		handlers.CORS(handlers.AllowedHeaders(allowedCORSHeaders)),
		handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{log}), handlers.PrintRecoveryStack(false)),
		instrumentHTTP(reg, log),
	)
	for _, registrar := range registrars {
		registrar.Register(apiV1Router)
	}

	return &http.Server{
		Addr:              addr,
		ReadTimeout:       3 * time.Second,
		ReadHeaderTimeout: time.Second,
		// reveal calls the execution venue, leave room for it
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
		Handler:      http.MaxBytesHandler(r, maxBodySize),
	}
}

func (f RegistrarFunc) Register(r *mux.Router) {
	f(r)
}

type recoveryLogger struct {
	log *zerolog.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.log.Error().Msgf("recovered from panic: %v", v)
}
