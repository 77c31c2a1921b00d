// Package catalog supplies the data the dashboards render: the rider offer
// catalog, the driver's pending requests and the read-only reports.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/example/ride-dashboards/internal/models"
)

// Provider is the seam where a real booking or dispatch backend plugs in.
type Provider interface {
	Offers(ctx context.Context) ([]models.RideOffer, error)
	PendingRequests(ctx context.Context) ([]models.RideRequest, error)
	DriverReport(ctx context.Context) (models.DriverReport, error)
	ManagerReport(ctx context.Context) (models.ManagerReport, error)
	RegulatorReport(ctx context.Context) (models.RegulatorReport, error)
}

var ErrUnavailable = errors.New("catalog provider unavailable")

//go:embed fixtures/default.yaml
var defaultFixtures []byte

// Fixtures is the on-disk layout of a static data set.
type Fixtures struct {
	Offers    []models.RideOffer     `yaml:"offers"`
	Requests  []models.RideRequest   `yaml:"requests"`
	Driver    models.DriverReport    `yaml:"driver"`
	Manager   models.ManagerReport   `yaml:"manager"`
	Regulator models.RegulatorReport `yaml:"regulator"`
}

// Static serves a fixed data set held in memory.
type Static struct {
	f Fixtures
}

func NewStatic(f Fixtures) *Static { return &Static{f: f} }

// Default returns the built-in sample data.
func Default() (*Static, error) {
	return Parse(defaultFixtures)
}

// LoadFile reads a fixture file in the same layout as the built-in one.
func LoadFile(path string) (*Static, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Static, error) {
	var f Fixtures
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	for _, o := range f.Offers {
		if err := o.Validate(); err != nil {
			return nil, err
		}
	}
	for _, r := range f.Requests {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	return NewStatic(f), nil
}

func (s *Static) Offers(context.Context) ([]models.RideOffer, error) {
	return append([]models.RideOffer(nil), s.f.Offers...), nil
}

func (s *Static) PendingRequests(context.Context) ([]models.RideRequest, error) {
	return append([]models.RideRequest(nil), s.f.Requests...), nil
}

func (s *Static) DriverReport(context.Context) (models.DriverReport, error) {
	return s.f.Driver, nil
}

func (s *Static) ManagerReport(context.Context) (models.ManagerReport, error) {
	return s.f.Manager, nil
}

func (s *Static) RegulatorReport(context.Context) (models.RegulatorReport, error) {
	return s.f.Regulator, nil
}
