package integration

import (
	"context"

	"github.com/jmylchreest/yeelightd/internal/config"
	"github.com/jmylchreest/yeelightd/internal/errors"
	"github.com/jmylchreest/yeelightd/pkg/yeelight"
)

// TurnOnParams are the optional settings applied when a light is turned on
type TurnOnParams struct {
	Brightness *int    // percent, 1-100
	Kelvin     *int    // color temperature
	RGB        *[3]int // red, green, blue
}

func (p TurnOnParams) changesLight() bool {
	return p.Brightness != nil || p.Kelvin != nil || p.RGB != nil
}

func (p TurnOnParams) validate() error {
	if p.Brightness != nil && (*p.Brightness < config.MinBrightness || *p.Brightness > config.MaxBrightness) {
		return errors.InvalidInputf("brightness %d out of range %d-%d", *p.Brightness, config.MinBrightness, config.MaxBrightness)
	}
	if p.Kelvin != nil && (*p.Kelvin < config.MinTemperature || *p.Kelvin > config.MaxTemperature) {
		return errors.InvalidInputf("color temperature %dK out of range %d-%dK", *p.Kelvin, config.MinTemperature, config.MaxTemperature)
	}
	if p.Kelvin != nil && p.RGB != nil {
		return errors.InvalidInputf("color temperature and rgb color are mutually exclusive")
	}
	if p.RGB != nil {
		for _, c := range p.RGB {
			if c < 0 || c > 255 {
				return errors.InvalidInputf("rgb component %d out of range 0-255", c)
			}
		}
	}
	return nil
}

// TurnOn turns a light entity on and applies params.
//
// For the nightlight entity this switches the bulb into moonlight mode; for
// the main light of a bulb with a separate nightlight entity it switches back
// to normal mode. Entries with save_on_change store the new brightness or
// color as the bulb's power-on default.
func (i *Integration) TurnOn(ctx context.Context, entityID string, params TurnOnParams) error {
	if err := params.validate(); err != nil {
		return err
	}
	d, e, err := i.findEntity(entityID)
	if err != nil {
		return err
	}
	if e.Domain != DomainLight {
		return errors.InvalidInputf("entity %s is not a light", entityID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	lt := e.lightType()
	switch e.Kind {
	case KindNightlight:
		err = d.bulb.SetPowerMode(ctx, yeelight.PowerModeMoonlight)
	case KindLight:
		if d.nightlightSwitch && d.bulb.LastProperties().IsNightlight() {
			err = d.bulb.SetPowerMode(ctx, yeelight.PowerModeNormal)
		} else {
			err = d.bulb.TurnOn(ctx, lt)
		}
	default:
		err = d.bulb.TurnOn(ctx, lt)
	}
	if err != nil {
		return i.commandFailed(d, entityID, "turn_on", err)
	}

	if params.Brightness != nil {
		if err := d.bulb.SetBrightness(ctx, lt, *params.Brightness); err != nil {
			return i.commandFailed(d, entityID, "set_brightness", err)
		}
	}
	if e.Kind != KindNightlight {
		if params.Kelvin != nil {
			if err := d.bulb.SetColorTemp(ctx, lt, *params.Kelvin); err != nil {
				return i.commandFailed(d, entityID, "set_color_temp", err)
			}
		}
		if params.RGB != nil {
			if err := d.bulb.SetRGB(ctx, lt, params.RGB[0], params.RGB[1], params.RGB[2]); err != nil {
				return i.commandFailed(d, entityID, "set_rgb", err)
			}
		}
	}

	if d.saveOnChange && params.changesLight() {
		if err := d.bulb.SetDefault(ctx, lt); err != nil {
			return i.commandFailed(d, entityID, "set_default", err)
		}
	}

	i.writeStates(d, d.bulb.LastProperties())
	return nil
}

// TurnOff turns a light entity off. Turning the nightlight off returns the
// bulb to normal mode.
func (i *Integration) TurnOff(ctx context.Context, entityID string) error {
	d, e, err := i.findEntity(entityID)
	if err != nil {
		return err
	}
	if e.Domain != DomainLight {
		return errors.InvalidInputf("entity %s is not a light", entityID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if e.Kind == KindNightlight {
		err = d.bulb.SetPowerMode(ctx, yeelight.PowerModeNormal)
	} else {
		err = d.bulb.TurnOff(ctx, e.lightType())
	}
	if err != nil {
		return i.commandFailed(d, entityID, "turn_off", err)
	}
	i.writeStates(d, d.bulb.LastProperties())
	return nil
}

func (i *Integration) commandFailed(d *device, entityID, command string, err error) error {
	return errors.LogErrorAndReturn(i.logger,
		errors.DeviceUnavailablef("%s %s on bulb %s: %w", command, entityID, d.info.Host, err),
		"light: command failed", "entity_id", entityID, "command", command)
}
