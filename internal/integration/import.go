package integration

import (
	"context"
	"sort"

	"github.com/go-viper/mapstructure/v2"

	"github.com/jmylchreest/yeelightd/internal/core"
	"github.com/jmylchreest/yeelightd/internal/errors"
)

// flatConfig is the yeelight block of the daemon configuration:
//
//	yeelight:
//	  devices:
//	    192.168.1.239:
//	      name: Living Room
//	      nightlight_switch_type: light
type flatConfig struct {
	Devices map[string]deviceConfig `mapstructure:"devices"`
}

type deviceConfig struct {
	Name                 string `mapstructure:"name"`
	Model                string `mapstructure:"model"`
	Transition           *int   `mapstructure:"transition"`
	UseMusicMode         bool   `mapstructure:"use_music_mode"`
	SaveOnChange         bool   `mapstructure:"save_on_change"`
	NightlightSwitchType string `mapstructure:"nightlight_switch_type"`
}

func decodeFlatConfig(raw map[string]any) (flatConfig, error) {
	var cfg flatConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, errors.InvalidInputf("invalid yeelight configuration: %v", err)
	}
	for host, dc := range cfg.Devices {
		switch dc.NightlightSwitchType {
		case "", NightlightSwitchTypeLight:
		default:
			return cfg, errors.InvalidInputf("device %s: unsupported nightlight_switch_type %q", host, dc.NightlightSwitchType)
		}
		if dc.Transition != nil && *dc.Transition < 0 {
			return cfg, errors.InvalidInputf("device %s: transition must not be negative", host)
		}
	}
	return cfg, nil
}

// Import turns the flat devices block into config entries, one per host.
// Each host is probed for its hardware ID, which becomes the entry's unique
// ID. Hosts that do not answer are still imported, without a unique ID.
// Hosts or bulbs that already have an entry are skipped.
func (i *Integration) Import(ctx context.Context, raw map[string]any, existing []*core.ConfigEntry) ([]*core.ConfigEntry, error) {
	cfg, err := decodeFlatConfig(raw)
	if err != nil {
		return nil, err
	}

	knownHosts := make(map[string]bool)
	knownIDs := make(map[string]bool)
	for _, e := range existing {
		if h := e.String(ConfHost); h != "" {
			knownHosts[h] = true
		}
		if e.UniqueID != "" {
			knownIDs[e.UniqueID] = true
		}
	}

	hosts := make([]string, 0, len(cfg.Devices))
	for host := range cfg.Devices {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)

	var out []*core.ConfigEntry
	for _, host := range hosts {
		dc := cfg.Devices[host]
		if knownHosts[host] {
			i.logger.Debug("light: import skipped, host already configured", "host", host)
			continue
		}

		uniqueID := ""
		model := dc.Model
		if caps, err := i.discovery.Probe(ctx, host); err != nil {
			i.logger.Warn("light: could not read bulb id during import", "host", host, "error", err)
		} else {
			uniqueID = caps.ID()
			if model == "" {
				model = caps.Model()
			}
		}
		if uniqueID != "" && knownIDs[uniqueID] {
			i.logger.Debug("light: import skipped, bulb already configured", "host", host, "id", uniqueID)
			continue
		}

		data := map[string]any{
			ConfHost:             host,
			ConfNightlightSwitch: dc.NightlightSwitchType == NightlightSwitchTypeLight,
			ConfModeMusic:        dc.UseMusicMode,
			ConfSaveOnChange:     dc.SaveOnChange,
			ConfTransition:       DefaultTransition,
		}
		if dc.Transition != nil {
			data[ConfTransition] = *dc.Transition
		}
		if dc.Name != "" {
			data[ConfName] = dc.Name
		}
		if model != "" {
			data[ConfModel] = model
		}
		if uniqueID != "" {
			data[ConfID] = uniqueID
		}

		title := dc.Name
		if title == "" {
			title = host
		}
		entry := core.NewConfigEntry(Domain, title, core.SourceImport, data)
		entry.UniqueID = uniqueID
		out = append(out, entry)

		knownHosts[host] = true
		if uniqueID != "" {
			knownIDs[uniqueID] = true
		}
	}
	return out, nil
}
