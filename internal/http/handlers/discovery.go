package handlers

import (
	"context"

	"github.com/jmylchreest/yeelightd/pkg/yeelight"
)

// BulbScanner exposes network discovery. *yeelight.Scanner implements it.
type BulbScanner interface {
	Scan(ctx context.Context) error
	Devices() []yeelight.Capabilities
}

// ListBulbsInput is the input for listing discovered bulbs.
type ListBulbsInput struct{}

// ScanInput is the input for triggering a scan.
type ScanInput struct{}

// ListBulbsOutput lists bulbs seen on the network.
type ListBulbsOutput struct {
	Body []BulbResponse
}

// DiscoveryHandler implements discovery handlers.
type DiscoveryHandler struct {
	Scanner BulbScanner
}

// ListBulbs returns the bulbs seen by recent scans.
func (h *DiscoveryHandler) ListBulbs(_ context.Context, _ *ListBulbsInput) (*ListBulbsOutput, error) {
	return &ListBulbsOutput{Body: h.bulbs()}, nil
}

// Scan runs a discovery scan and returns every known bulb.
func (h *DiscoveryHandler) Scan(ctx context.Context, _ *ScanInput) (*ListBulbsOutput, error) {
	if err := h.Scanner.Scan(ctx); err != nil {
		return nil, toHumaError(err)
	}
	return &ListBulbsOutput{Body: h.bulbs()}, nil
}

func (h *DiscoveryHandler) bulbs() []BulbResponse {
	devices := h.Scanner.Devices()
	out := make([]BulbResponse, len(devices))
	for i, c := range devices {
		out[i] = BulbFromCapabilities(c)
	}
	return out
}

var _ DiscoveryHandlers = (*DiscoveryHandler)(nil)

// DiscoveryHandlers defines the discovery operations.
type DiscoveryHandlers interface {
	ListBulbs(ctx context.Context, input *ListBulbsInput) (*ListBulbsOutput, error)
	Scan(ctx context.Context, input *ScanInput) (*ListBulbsOutput, error)
}
