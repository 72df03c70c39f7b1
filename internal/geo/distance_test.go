package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKM(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
	}{
		{"same point", Point{47.6062, -122.3321}, Point{47.6062, -122.3321}, 0},
		{"seattle to portland", Point{47.6062, -122.3321}, Point{45.5152, -122.6784}, 234.0},
		{"one degree of latitude", Point{0, 0}, Point{1, 0}, 111.19},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, HaversineKM(tt.a, tt.b), 1.0)
		})
	}
}

func TestHaversineKM_Symmetric(t *testing.T) {
	a := Point{40.7128, -74.0060}
	b := Point{51.5074, -0.1278}
	assert.InDelta(t, HaversineKM(a, b), HaversineKM(b, a), 1e-9)
}

func TestDistanceKM_MissingCoordinates(t *testing.T) {
	lat, lon := 10.0, 20.0
	p := PointFrom(&lat, &lon)

	assert.Nil(t, PointFrom(&lat, nil))
	assert.Nil(t, DistanceKM(p, nil))
	assert.Nil(t, DistanceKM(nil, p))

	d := DistanceKM(p, p)
	if assert.NotNil(t, d) {
		assert.Zero(t, *d)
	}
}
