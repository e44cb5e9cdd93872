package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "electrique", Fold("Électrique"))
	assert.Equal(t, "decapotable", Fold("  Décapotable "))
	assert.Equal(t, "sedan", Fold("SEDAN"))
}

func TestVocabulary(t *testing.T) {
	tests := []struct {
		name     string
		fn       func(string) string
		in       string
		expected string
	}{
		{"body french", BodyType, "Berline", "Sedan"},
		{"body french suv", BodyType, "VUS", "SUV"},
		{"body accented", BodyType, "Décapotable", "Convertible"},
		{"body english passthrough", BodyType, "Sedan", "Sedan"},
		{"fuel french", FuelType, "Essence", "Gasoline"},
		{"fuel accented", FuelType, "Électrique", "Electric"},
		{"fuel plug-in", FuelType, "Hybride rechargeable", "Plug-in Hybrid"},
		{"transmission french", Transmission, "Automatique", "Automatic"},
		{"transmission cvt", Transmission, "CVT", "CVT"},
		{"drivetrain french", Drivetrain, "Traction intégrale", "AWD"},
		{"drivetrain fwd", Drivetrain, "Traction avant", "FWD"},
		{"color french", Color, "Gris", "Grey"},
		{"color gray variant", Color, "Gray", "Grey"},
		{"unmapped passes through", Color, "Champagne", "Champagne"},
		{"empty stays empty", BodyType, "", ""},
		{"whitespace only", FuelType, "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.fn(tt.in))
		})
	}
}

func TestOdometer(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected int
	}{
		{"plain km", "52000", 52000},
		{"km with unit", "52 000 km", 52000},
		{"km with commas", "52,000 KM", 52000},
		{"miles converted", "30,000 mi", 48280},
		{"french miles", "30 000 milles", 48280},
		{"empty", "", 0},
		{"garbage", "N/A", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Odometer(tt.in))
		})
	}
}

func TestPrice(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected int
	}{
		{"plain", "24995", 24995},
		{"dollar prefix", "$24,995", 24995},
		{"french suffix with cents", "24 995,00 $", 24995},
		{"dot cents", "$24,995.00", 24995},
		{"euro", "24.995,00 €", 24995},
		{"empty", "", 0},
		{"call for price", "Appelez-nous", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Price(tt.in))
		})
	}
}
