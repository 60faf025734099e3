package yeelight

// ModelSpec describes what a bulb model supports beyond its capability class.
type ModelSpec struct {
	MinKelvin       int  `json:"min_kelvin"`
	MaxKelvin       int  `json:"max_kelvin"`
	NightLight      bool `json:"night_light"`
	BackgroundLight bool `json:"background_light"`
}

// DefaultModelSpec is used for models missing from the table.
var DefaultModelSpec = ModelSpec{MinKelvin: 1700, MaxKelvin: 6500}

var modelSpecs = map[string]ModelSpec{
	"mono":      {MinKelvin: 2700, MaxKelvin: 2700},
	"mono1":     {MinKelvin: 2700, MaxKelvin: 2700},
	"color":     {MinKelvin: 1700, MaxKelvin: 6500},
	"color1":    {MinKelvin: 1700, MaxKelvin: 6500},
	"color2":    {MinKelvin: 2700, MaxKelvin: 6500},
	"strip1":    {MinKelvin: 1700, MaxKelvin: 6500},
	"bslamp1":   {MinKelvin: 1700, MaxKelvin: 6500},
	"bslamp2":   {MinKelvin: 1700, MaxKelvin: 6500, NightLight: true},
	"ceiling1":  {MinKelvin: 2700, MaxKelvin: 6500, NightLight: true},
	"ceiling2":  {MinKelvin: 2700, MaxKelvin: 6500, NightLight: true},
	"ceiling3":  {MinKelvin: 2700, MaxKelvin: 6500, NightLight: true},
	"ceiling4":  {MinKelvin: 2700, MaxKelvin: 6500, NightLight: true, BackgroundLight: true},
	"ceiling13": {MinKelvin: 2700, MaxKelvin: 6500, NightLight: true},
	"ceila":     {MinKelvin: 2700, MaxKelvin: 6500, NightLight: true},
	"lamp1":     {MinKelvin: 2700, MaxKelvin: 5000},
	"ct_bulb":   {MinKelvin: 2700, MaxKelvin: 6500},
}

// SpecForModel returns the spec of a model, or DefaultModelSpec when unknown.
func SpecForModel(model string) ModelSpec {
	if spec, ok := modelSpecs[model]; ok {
		return spec
	}
	return DefaultModelSpec
}

// ClampKelvin limits a color temperature to the spec's range.
func (s ModelSpec) ClampKelvin(kelvin int) int {
	return clamp(kelvin, s.MinKelvin, s.MaxKelvin)
}
