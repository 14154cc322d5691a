package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akifumi-dev/crossarb/internal/domain"
)

func testSkewParams() SkewParams {
	return SkewParams{
		BaseThreshold: 1000,
		SkewPremium:   300,
		SkewDiscount:  200,
		HighWatermark: 0.08,
	}
}

func TestThresholdBalancedInventory(t *testing.T) {
	p := NewSkewPolicy(testSkewParams())
	inv := domain.InventoryState{BaseHoldings: map[domain.Venue]float64{
		domain.VenueGMO:       0.03,
		domain.VenueCoincheck: 0.03,
	}}

	assert.Equal(t, 1000.0, p.Threshold(inv, domain.VenueGMO, domain.VenueCoincheck))
	assert.Equal(t, 1000.0, p.Threshold(inv, domain.VenueCoincheck, domain.VenueGMO))
}

func TestThresholdSkewedInventory(t *testing.T) {
	p := NewSkewPolicy(testSkewParams())

	tests := []struct {
		name      string
		gmo       float64
		coincheck float64
		buyVenue  domain.Venue
		sellVenue domain.Venue
		want      float64
	}{
		{
			name:     "buy venue overstocked raises threshold",
			gmo:      0.09,
			buyVenue: domain.VenueGMO, sellVenue: domain.VenueCoincheck,
			want: 1300,
		},
		{
			name:      "sell venue overstocked lowers threshold",
			coincheck: 0.09,
			buyVenue:  domain.VenueGMO, sellVenue: domain.VenueCoincheck,
			want: 800,
		},
		{
			name: "both overstocked applies premium and discount",
			gmo:  0.10, coincheck: 0.10,
			buyVenue: domain.VenueGMO, sellVenue: domain.VenueCoincheck,
			want: 1100,
		},
		{
			name: "holding exactly at watermark counts as overstocked",
			gmo:  0.08,
			buyVenue: domain.VenueGMO, sellVenue: domain.VenueCoincheck,
			want: 1300,
		},
		{
			name: "holding just below watermark does not",
			gmo:  0.0799,
			buyVenue: domain.VenueGMO, sellVenue: domain.VenueCoincheck,
			want: 1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := domain.InventoryState{BaseHoldings: map[domain.Venue]float64{
				domain.VenueGMO:       tt.gmo,
				domain.VenueCoincheck: tt.coincheck,
			}}
			assert.Equal(t, tt.want, p.Threshold(inv, tt.buyVenue, tt.sellVenue))
		})
	}
}

func TestThresholdUnknownVenueTreatedAsEmpty(t *testing.T) {
	p := NewSkewPolicy(testSkewParams())
	inv := domain.InventoryState{BaseHoldings: map[domain.Venue]float64{}}

	assert.Equal(t, 1000.0, p.Threshold(inv, domain.VenueGMO, domain.VenueCoincheck))
}
