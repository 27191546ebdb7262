package collector

import (
	"testing"
	"time"

	"pricewatch-backend/services/pricestore"

	"github.com/stretchr/testify/require"
)

func TestShouldCollect(t *testing.T) {
	service := NewService(nil, nil, pricestore.Service{}, Options{
		RunHours: []int{6, 18},
	})

	// Stockholm is UTC+2 in August, so 04:00 UTC is an 06:00 run
	require.True(t, service.shouldCollect(time.Date(2026, 8, 28, 4, 0, 0, 0, time.UTC)))
	require.True(t, service.shouldCollect(time.Date(2026, 8, 28, 16, 30, 0, 0, time.UTC)))
	// 06:00 UTC is 08:00 storefront time, not a run hour
	require.False(t, service.shouldCollect(time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)))
	require.False(t, service.shouldCollect(time.Date(2026, 8, 28, 22, 0, 0, 0, time.UTC)))
}

func TestShouldCollectDefaultHours(t *testing.T) {
	service := NewService(nil, nil, pricestore.Service{}, Options{})

	// unset run hours default to 06:00 and 18:00 storefront time
	require.True(t, service.shouldCollect(time.Date(2026, 8, 28, 16, 0, 0, 0, time.UTC)))
	require.False(t, service.shouldCollect(time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)))
}
