package services

import (
	"context"

	"hazacheck/internal/database"

	"gorm.io/gorm"
)

// HealthResult is the health endpoint payload
type HealthResult struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Database string `json:"database"`
}

// HealthService reports service and database health
type HealthService struct {
	db      *gorm.DB
	service string
}

// NewHealthService creates a new health service
func NewHealthService(db *gorm.DB, service string) *HealthService {
	return &HealthService{db: db, service: service}
}

// Check pings the database; healthy is false when the ping fails
func (s *HealthService) Check(ctx context.Context) (result HealthResult, healthy bool) {
	result = HealthResult{Status: "healthy", Service: s.service, Database: "ok"}
	if err := database.HealthCheck(ctx, s.db); err != nil {
		result.Status = "unhealthy"
		result.Database = "unavailable"
		return result, false
	}
	return result, true
}
