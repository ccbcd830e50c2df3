package thermostat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCelsiusToFahrenheit(t *testing.T) {
	assert.Equal(t, 32.0, CelsiusToFahrenheit(0))
	assert.Equal(t, 212.0, CelsiusToFahrenheit(100))
	assert.Equal(t, 71.6, CelsiusToFahrenheit(22))
	assert.Equal(t, 72.5, CelsiusToFahrenheit(22.5))
}

func TestFahrenheitToCelsius(t *testing.T) {
	assert.Equal(t, 0.0, FahrenheitToCelsius(32))
	assert.Equal(t, 100.0, FahrenheitToCelsius(212))
	assert.Equal(t, 22.22, FahrenheitToCelsius(72))
}

func TestConversionRoundTrip(t *testing.T) {
	// One-decimal Fahrenheit values survive the round trip within 0.1°F.
	for f := 50.0; f <= 95.0; f += 0.5 {
		back := CelsiusToFahrenheit(FahrenheitToCelsius(f))
		assert.LessOrEqual(t, math.Abs(back-f), 0.1, "round trip for %.1f°F", f)
	}
}
