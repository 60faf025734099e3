package integration

import (
	"github.com/jmylchreest/yeelightd/internal/state"
	"github.com/jmylchreest/yeelightd/pkg/yeelight"
)

// EntityKind says which part of a bulb an entity represents
type EntityKind string

const (
	KindLight            EntityKind = "light"
	KindNightlight       EntityKind = "nightlight"
	KindAmbientLight     EntityKind = "ambient_light"
	KindNightlightSensor EntityKind = "nightlight_sensor"
)

// Entity is one entity exposed by a loaded bulb
type Entity struct {
	EntityID      string     `json:"entity_id"`
	UniqueID      string     `json:"unique_id"`
	Domain        string     `json:"domain"`
	Name          string     `json:"name"`
	Kind          EntityKind `json:"kind"`
	ConfigEntryID string     `json:"config_entry_id"`
}

// lightType maps the entity onto the bulb light it controls
func (e Entity) lightType() yeelight.LightType {
	if e.Kind == KindAmbientLight {
		return yeelight.LightTypeAmbient
	}
	return yeelight.LightTypeMain
}

// render computes the state value and attributes of the entity from a
// property snapshot.
func (e Entity) render(d *device, props yeelight.Properties) (string, map[string]any) {
	attrs := map[string]any{"friendly_name": e.Name}

	switch e.Kind {
	case KindNightlightSensor:
		return onOff(props.IsNightlight()), attrs

	case KindNightlight:
		on := props.IsOn() && props.IsNightlight()
		if on && !props.IsEmpty("nl_br") {
			attrs["brightness"] = props.Int("nl_br")
		}
		return onOff(on), attrs

	case KindAmbientLight:
		on := props.Get("bg_power") == "on"
		if on {
			attrs["brightness"] = props.Int("bg_bright")
			addColor(attrs, props, "bg_", "bg_lmode")
		}
		attrs["flowing"] = props.Get("bg_flowing") == "1"
		return onOff(on), attrs
	}

	on := props.IsOn()
	// With a separate nightlight entity the main light is off while in moonlight mode
	if d.nightlightSwitch && props.IsNightlight() {
		on = false
	}
	attrs["model"] = d.info.Model
	attrs["bulb_type"] = d.info.Type.String()
	attrs["min_kelvin"] = d.info.Spec.MinKelvin
	attrs["max_kelvin"] = d.info.Spec.MaxKelvin
	if d.info.FirmwareVersion != "" {
		attrs["firmware_version"] = d.info.FirmwareVersion
	}
	attrs["flowing"] = props.Get("flowing") == "1"
	attrs["night_light"] = props.IsNightlight()
	if on {
		attrs["brightness"] = props.Int("bright")
		addColor(attrs, props, "", "color_mode")
	}
	return onOff(on), attrs
}

// addColor sets color_temp_kelvin or rgb_color depending on the color mode
// (1 rgb, 2 color temperature, 3 hsv)
func addColor(attrs map[string]any, props yeelight.Properties, prefix, modeKey string) {
	switch props.Get(modeKey) {
	case yeelight.ColorModeRGB:
		r, g, b := yeelight.IntToRGB(props.Int(prefix + "rgb"))
		attrs["rgb_color"] = []int{r, g, b}
	case yeelight.ColorModeHSV:
		attrs["hs_color"] = []int{props.Int(prefix + "hue"), props.Int(prefix + "sat")}
	default:
		if !props.IsEmpty(prefix + "ct") {
			attrs["color_temp_kelvin"] = props.Int(prefix + "ct")
		}
	}
}

func onOff(on bool) string {
	if on {
		return state.On
	}
	return state.Off
}
