package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// http_requests_total conta as requisições recebidas, com labels que
	// permitem fatiar por método, rota e status.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requisições HTTP recebidas.",
		},
		[]string{"method", "path", "code"},
	)

	// http_request_duration_seconds mede a latência das requisições.
	// O que interessa aqui são as rotas que chamam a Stripe.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duração das requisições HTTP em segundos.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "code"},
	)
)

// prometheusMiddleware coleta as métricas de cada requisição.
func prometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		duration := time.Since(start).Seconds()
		statusCode := ww.Status()

		// Usa o padrão da rota (ex: /assinatura/verificar) para não criar
		// uma série por valor de parâmetro.
		routePattern := chi.RouteContext(r.Context()).RoutePattern()

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, strconv.Itoa(statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, strconv.Itoa(statusCode)).Observe(duration)
	})
}
