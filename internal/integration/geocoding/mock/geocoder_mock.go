package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/lead-outreach-service/internal/integration/geocoding"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
)

// GeocoderMock mocks the Geocoder interface
type GeocoderMock struct {
	mock.Mock
}

// Ensure GeocoderMock implements geocoding.Geocoder
var _ geocoding.Geocoder = (*GeocoderMock)(nil)

// Geocode mocks the Geocode method
func (m *GeocoderMock) Geocode(ctx context.Context, address string) (model.Coordinates, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(model.Coordinates), args.Error(1)
}
