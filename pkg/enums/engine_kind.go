package enums

import "fmt"

// EngineKind identifies the cylinder configuration of an engine.
type EngineKind string

const (
	EngineKindInline3 EngineKind = "Inline 3"
	EngineKindInline4 EngineKind = "Inline 4"
	EngineKindInline5 EngineKind = "Inline 5"
	EngineKindInline6 EngineKind = "Inline 6"
	EngineKindV6      EngineKind = "V6"
	EngineKindV8      EngineKind = "V8"
	EngineKindV10     EngineKind = "V10"
	EngineKindV12     EngineKind = "V12"
	EngineKindV16     EngineKind = "V16"
	EngineKindW12     EngineKind = "W12"
	EngineKindW16     EngineKind = "W16"
	EngineKindFlat4   EngineKind = "Flat 4"
	EngineKindFlat6   EngineKind = "Flat 6"
	EngineKindRotary  EngineKind = "Rotary"
)

var validEngineKinds = []EngineKind{
	EngineKindInline3,
	EngineKindInline4,
	EngineKindInline5,
	EngineKindInline6,
	EngineKindV6,
	EngineKindV8,
	EngineKindV10,
	EngineKindV12,
	EngineKindV16,
	EngineKindW12,
	EngineKindW16,
	EngineKindFlat4,
	EngineKindFlat6,
	EngineKindRotary,
}

// String returns the literal string for the engine kind.
func (e EngineKind) String() string {
	return string(e)
}

// IsValid reports whether the engine kind is known.
func (e EngineKind) IsValid() bool {
	for _, candidate := range validEngineKinds {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEngineKind converts raw input into an EngineKind.
func ParseEngineKind(value string) (EngineKind, error) {
	for _, candidate := range validEngineKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid engine kind %q", value)
}
