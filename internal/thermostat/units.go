package thermostat

import "math"

// Unit conversion at the adapter boundary. Everything above the adapters
// speaks Fahrenheit; Celsius-native vendors convert here.

// CelsiusToFahrenheit converts and rounds to one decimal place, matching the
// display precision the vendors use.
func CelsiusToFahrenheit(c float64) float64 {
	return roundTo(c*9.0/5.0+32.0, 1)
}

// FahrenheitToCelsius converts and rounds to two decimal places, enough to
// round-trip a one-decimal Fahrenheit value within 0.1°F.
func FahrenheitToCelsius(f float64) float64 {
	return roundTo((f-32.0)*5.0/9.0, 2)
}

func roundTo(x float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(x*shift) / shift
}
