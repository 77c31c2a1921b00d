package service

import (
	"context"
	"time"

	"github.com/example/ride-dashboards/internal/models"
)

func (s *Service) DriverReport(ctx context.Context) (models.DriverReport, error) {
	defer observeProvider("driver_report", time.Now())
	return s.provider.DriverReport(ctx)
}

func (s *Service) ManagerReport(ctx context.Context) (models.ManagerReport, error) {
	defer observeProvider("manager_report", time.Now())
	return s.provider.ManagerReport(ctx)
}

func (s *Service) RegulatorReport(ctx context.Context) (models.RegulatorReport, error) {
	defer observeProvider("regulator_report", time.Now())
	return s.provider.RegulatorReport(ctx)
}
