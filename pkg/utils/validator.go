package utils

import (
	"fmt"
	"math"
	"regexp"
)

// ValidateReading rejects readings that are not finite numbers. Units are not
// validated; meter totalizers are plain floats.
func ValidateReading(reading float64) error {
	if math.IsNaN(reading) || math.IsInf(reading, 0) {
		return fmt.Errorf("reading must be a finite number")
	}
	return nil
}

var truckNumberRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9 \-]{2,19}$`)

// ValidateTruckNumber checks a registration plate like GJ-01-AB-1234.
func ValidateTruckNumber(truckNumber string) error {
	if truckNumber == "" {
		return fmt.Errorf("truck number is required")
	}
	if !truckNumberRegex.MatchString(truckNumber) {
		return fmt.Errorf("invalid truck number: %s", truckNumber)
	}
	return nil
}
