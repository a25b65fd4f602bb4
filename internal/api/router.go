package api

import (
	"go-shard-query/internal/api/handler"
	"go-shard-query/pkg/router"
)

func RegisterRoutes(r *router.Router, h *handler.QueryHandler) {
	r.POST("/api/v1/queries", h.CreateQuery)
	r.GET("/api/v1/queries", h.ListQueries)
	// More specific routes first
	r.GET("/api/v1/queries/*/result", h.GetQueryResult)
	r.GET("/api/v1/queries/*/failures", h.GetQueryFailures)
	r.GET("/api/v1/queries/*/metrics", h.GetQueryMetrics)
	r.POST("/api/v1/queries/*/cancel", h.CancelQuery)
	r.POST("/api/v1/queries/*/retry", h.RetryQuery)
	// Generic run routes last
	r.GET("/api/v1/queries/*", h.GetQuery)
	r.DELETE("/api/v1/queries/*", h.DeleteQuery)

	r.GET("/api/v1/sources", h.ListSources)
}
