package integration

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmylchreest/yeelightd/internal/config"
	"github.com/jmylchreest/yeelightd/pkg/yeelight"
)

// Bulb is the device client the integration drives. *yeelight.Bulb implements it.
type Bulb interface {
	GetProperties(ctx context.Context, names ...string) (yeelight.Properties, error)
	LastProperties() yeelight.Properties
	BulbType() yeelight.BulbType
	ModelSpecs() yeelight.ModelSpec
	TurnOn(ctx context.Context, lt yeelight.LightType) error
	TurnOff(ctx context.Context, lt yeelight.LightType) error
	SetPowerMode(ctx context.Context, mode yeelight.PowerMode) error
	SetBrightness(ctx context.Context, lt yeelight.LightType, brightness int) error
	SetColorTemp(ctx context.Context, lt yeelight.LightType, kelvin int) error
	SetRGB(ctx context.Context, lt yeelight.LightType, r, g, b int) error
	SetDefault(ctx context.Context, lt yeelight.LightType) error
	Close() error
}

// capabilityProber is implemented by bulbs that can report their capabilities,
// used to learn the model when neither the entry nor discovery knows it.
type capabilityProber interface {
	Capabilities(ctx context.Context) (yeelight.Capabilities, error)
}

// BulbOptions are the entry settings handed to a BulbFactory
type BulbOptions struct {
	Model      string
	Transition time.Duration
}

// BulbFactory constructs the client for a bulb at host
type BulbFactory func(host string, opts BulbOptions) (Bulb, error)

// Discovery locates bulbs on the network. *yeelight.Scanner implements it.
type Discovery interface {
	Lookup(ctx context.Context, id string) (yeelight.Capabilities, bool, error)
	Probe(ctx context.Context, host string) (yeelight.Capabilities, error)
	Forget(id string)
}

// NewBulbFactory returns a factory creating LAN protocol clients
func NewBulbFactory(logger *slog.Logger) BulbFactory {
	return func(host string, opts BulbOptions) (Bulb, error) {
		bulb, err := yeelight.NewBulb(host,
			yeelight.WithModel(opts.Model),
			yeelight.WithEffect(opts.Transition),
			yeelight.WithTimeout(config.DefaultCommandTimeout),
			yeelight.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return bulb, nil
	}
}
