package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")

	// Static paths win over the :domain param in echo's router, so the
	// dashboard route can coexist with the generic summary route.
	api.GET("/dashboard/summary", s.getDashboard)
	api.GET("/:domain/:id", s.getSummary)

	admin := api.Group("/admin", s.requireAdminKey)
	admin.DELETE("/cache/:key", s.invalidateCacheKey)
}
