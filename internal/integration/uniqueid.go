package integration

import (
	"github.com/jmylchreest/yeelightd/internal/core"
	"github.com/jmylchreest/yeelightd/pkg/yeelight"
)

// EntityUniqueIDs holds the unique ID of every entity a bulb exposes.
// Empty fields mean the entity is not created.
type EntityUniqueIDs struct {
	Light        string
	BinarySensor string
	Nightlight   string
	Ambilight    string
}

// BaseUniqueID is the device's hardware ID when it reports one, otherwise the
// config entry ID.
func BaseUniqueID(dev yeelight.Device, entry *core.ConfigEntry) string {
	if dev.HardwareID != "" {
		return dev.HardwareID
	}
	return entry.EntryID
}

// UniqueIDs derives the unique IDs of a bulb's entities.
//
// The main light always exists. The binary sensor follows the model's
// nightlight support. The nightlight light additionally needs a capability
// class with a moonlight mode and the nightlight switch option. The ambient
// light exists for every bulb whose class has a background light.
func UniqueIDs(dev yeelight.Device, entry *core.ConfigEntry, nightlightSwitch bool) EntityUniqueIDs {
	base := BaseUniqueID(dev, entry)
	ids := EntityUniqueIDs{Light: base}
	if dev.Spec.NightLight {
		ids.BinarySensor = base
		if nightlightSwitch && dev.Type.HasNightlightMode() {
			ids.Nightlight = base + nightlightSuffix
		}
	}
	if dev.Type.HasAmbientLight() {
		ids.Ambilight = base + ambilightSuffix
	}
	return ids
}
