package enums

import "fmt"

// FuelType identifies what powers a listed vehicle.
type FuelType string

const (
	FuelTypePetrol   FuelType = "Petrol"
	FuelTypeDiesel   FuelType = "Diesel"
	FuelTypeElectric FuelType = "Electric"
	FuelTypeHybrid   FuelType = "Hybrid"
	FuelTypeCNG      FuelType = "CNG"
	FuelTypeLPG      FuelType = "LPG"
)

var validFuelTypes = []FuelType{
	FuelTypePetrol,
	FuelTypeDiesel,
	FuelTypeElectric,
	FuelTypeHybrid,
	FuelTypeCNG,
	FuelTypeLPG,
}

// String returns the literal string for the fuel type.
func (f FuelType) String() string {
	return string(f)
}

// IsValid reports whether the fuel type is known.
func (f FuelType) IsValid() bool {
	for _, candidate := range validFuelTypes {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFuelType converts raw input into a FuelType.
func ParseFuelType(value string) (FuelType, error) {
	for _, candidate := range validFuelTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fuel type %q", value)
}
