package rpc

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/riskgate-org/riskgate/metrics"
)

/*
instrumentHTTP returns http middleware which counts the calls of every route
and measures how long it took to serve the request. Responses with status
5xx are logged.
*/
func instrumentHTTP(reg *metrics.Registry, log *zerolog.Logger) func(next http.Handler) http.Handler {
	if reg == nil {
		return passthroughMW
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			name := "unknown"
			if route := mux.CurrentRoute(req); route != nil {
				if path, err := route.GetPathTemplate(); err == nil {
					name = routeMetricName(path)
				}
			}

			start := time.Now()
			rsp := newStatusResponseWriter(w)
			next.ServeHTTP(rsp, req)

			reg.Timer("riskgate/rest/" + name + "/duration").UpdateSince(start)
			if rsp.statusCode >= http.StatusInternalServerError {
				reg.Counter("riskgate/rest/" + name + "/errors").Inc(1)
				log.Warn().Str("path", req.URL.Path).Int("status", rsp.statusCode).Msg("request failed")
			}
		})
	}
}

// routeMetricName converts "/api/v1/credit/lines/{address}" to "credit_lines_address".
func routeMetricName(path string) string {
	path = strings.TrimPrefix(path, "/api/v1/")
	return strings.NewReplacer("/", "_", "{", "", "}", "").Replace(path)
}

/*
passthroughMW is NOP middleware.
*/
func passthroughMW(next http.Handler) http.Handler {
	return next
}

/*
statusResponseWriter is a http.ResponseWriter wrapper which allows to capture
status code of the response.
*/
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode    int
	headerWritten bool
}

func newStatusResponseWriter(w http.ResponseWriter) *statusResponseWriter {
	return &statusResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (mw *statusResponseWriter) WriteHeader(statusCode int) {
	mw.ResponseWriter.WriteHeader(statusCode)

	if !mw.headerWritten {
		mw.statusCode = statusCode
		mw.headerWritten = true
	}
}

func (mw *statusResponseWriter) Write(b []byte) (int, error) {
	mw.headerWritten = true
	return mw.ResponseWriter.Write(b)
}

func (mw *statusResponseWriter) Unwrap() http.ResponseWriter {
	return mw.ResponseWriter
}
