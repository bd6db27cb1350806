package enums

import "fmt"

// Transmission identifies the gearbox of a listed vehicle.
type Transmission string

const (
	TransmissionManual    Transmission = "Manual"
	TransmissionAutomatic Transmission = "Automatic"
)

var validTransmissions = []Transmission{
	TransmissionManual,
	TransmissionAutomatic,
}

// String returns the literal string for the transmission.
func (t Transmission) String() string {
	return string(t)
}

// IsValid reports whether the transmission is known.
func (t Transmission) IsValid() bool {
	for _, candidate := range validTransmissions {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransmission converts raw input into a Transmission.
func ParseTransmission(value string) (Transmission, error) {
	for _, candidate := range validTransmissions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transmission %q", value)
}
