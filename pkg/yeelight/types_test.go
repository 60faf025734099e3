package yeelight

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBulbType(t *testing.T) {
	tests := []struct {
		name  string
		props Properties
		want  BulbType
	}{
		{"no properties", Properties{}, BulbTypeUnknown},
		{"missing ct", Properties{"power": "on", "rgb": ""}, BulbTypeUnknown},
		{"white temp mood", Properties{"ct": "4000", "rgb": "", "bg_power": "off"}, BulbTypeWhiteTempMood},
		{"white temp", Properties{"ct": "4000", "rgb": "", "bg_power": ""}, BulbTypeWhiteTemp},
		{"white", Properties{"ct": "", "rgb": "", "hue": "", "sat": ""}, BulbTypeWhite},
		{"color", Properties{"ct": "4000", "rgb": "255", "hue": "10", "sat": "20"}, BulbTypeColor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectBulbType(tt.props))
		})
	}
}

func TestBulbTypeClasses(t *testing.T) {
	assert.False(t, BulbTypeWhite.HasNightlightMode())
	assert.False(t, BulbTypeUnknown.HasNightlightMode())
	assert.True(t, BulbTypeColor.HasNightlightMode())
	assert.True(t, BulbTypeWhiteTemp.HasNightlightMode())
	assert.True(t, BulbTypeWhiteTempMood.HasNightlightMode())

	assert.True(t, BulbTypeWhiteTempMood.HasAmbientLight())
	assert.False(t, BulbTypeColor.HasAmbientLight())

	assert.Equal(t, "white_temp_mood", BulbTypeWhiteTempMood.String())
	assert.Equal(t, "unknown", BulbTypeUnknown.String())
}

func TestCapabilities(t *testing.T) {
	caps := Capabilities{
		"id":       "0x000000000015243f",
		"model":    "color",
		"fw_ver":   "18",
		"support":  "get_prop set_default set_power toggle",
		"location": "yeelight://192.168.1.239:55443",
		"name":     "bedroom",
	}
	dev := DeviceFromCapabilities(caps)
	assert.Equal(t, "192.168.1.239", dev.Host)
	assert.Equal(t, 55443, dev.Port)
	assert.Equal(t, "0x000000000015243f", dev.HardwareID)
	assert.Equal(t, "color", dev.Model)
	assert.Equal(t, "bedroom", dev.Name)
	assert.Equal(t, "18", dev.FirmwareVersion)
	assert.Equal(t, []string{"get_prop", "set_default", "set_power", "toggle"}, dev.Support)

	assert.Equal(t, DefaultPort, Capabilities{"location": "yeelight://10.0.0.2"}.Port())
	assert.Equal(t, "", Capabilities{}.Host())
}

func TestSpecForModel(t *testing.T) {
	assert.Equal(t, ModelSpec{MinKelvin: 2700, MaxKelvin: 2700}, SpecForModel("mono"))
	assert.True(t, SpecForModel("ceiling4").BackgroundLight)
	assert.True(t, SpecForModel("bslamp2").NightLight)
	assert.Equal(t, DefaultModelSpec, SpecForModel("does-not-exist"))
	assert.Equal(t, 5000, SpecForModel("lamp1").ClampKelvin(6500))
}

func TestRGB(t *testing.T) {
	assert.Equal(t, 16711680, RGBToInt(255, 0, 0))
	assert.Equal(t, 0xffffff, RGBToInt(300, 256, 999))
	r, g, b := IntToRGB(0x102030)
	assert.Equal(t, []int{0x10, 0x20, 0x30}, []int{r, g, b})
}

func TestModelFromMDNSInstance(t *testing.T) {
	assert.Equal(t, "color1", ModelFromMDNSInstance("yeelink-light-color1_miio55412874"))
	assert.Equal(t, "ceiling4", ModelFromMDNSInstance(`yeelink-light-ceiling4_miio\0511`))
	assert.Equal(t, "", ModelFromMDNSInstance("zhimi-airpurifier-m1_miio1234"))
}

func TestUnescapeRFC6763Label(t *testing.T) {
	assert.Equal(t, "Living Room", UnescapeRFC6763Label(`Living\032Room`))
	assert.Equal(t, "a.b", UnescapeRFC6763Label(`a\.b`))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "16711680", formatValue(float64(16711680)))
	assert.Equal(t, "", formatValue(nil))
	assert.Equal(t, "on", formatValue("on"))
	assert.Equal(t, "true", formatValue(true))
}
