package yeelight

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBulb is a TCP listener speaking the bulb protocol
type fakeBulb struct {
	t        *testing.T
	ln       net.Listener
	mu       sync.Mutex
	props    map[string]string
	received []request
	notify   bool
	failWith *CommandError
}

func newFakeBulb(t *testing.T) *fakeBulb {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	fb := &fakeBulb{
		t:  t,
		ln: ln,
		props: map[string]string{
			"power": "on", "bright": "80", "ct": "4000", "rgb": "16711680",
			"hue": "359", "sat": "100", "color_mode": "2", "active_mode": "0",
		},
	}
	go fb.serve()
	t.Cleanup(func() { ln.Close() })
	return fb
}

func (fb *fakeBulb) port() int {
	return fb.ln.Addr().(*net.TCPAddr).Port
}

func (fb *fakeBulb) serve() {
	for {
		conn, err := fb.ln.Accept()
		if err != nil {
			return
		}
		go fb.handle(conn)
	}
}

func (fb *fakeBulb) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			return
		}
		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			return
		}
		fb.mu.Lock()
		fb.received = append(fb.received, req)
		notify := fb.notify
		failWith := fb.failWith
		var result []any
		switch req.Method {
		case "get_prop":
			for _, p := range req.Params {
				result = append(result, fb.props[p.(string)])
			}
		case "set_power":
			fb.props["power"] = req.Params[0].(string)
			result = []any{"ok"}
		default:
			result = []any{"ok"}
		}
		fb.mu.Unlock()

		if notify {
			note, _ := json.Marshal(map[string]any{"method": "props", "params": map[string]any{"bright": 42, "rgb": 16711680}})
			conn.Write(append(note, '\r', '\n'))
		}
		var out []byte
		if failWith != nil {
			out, _ = json.Marshal(map[string]any{"id": req.ID, "error": failWith})
		} else {
			out, _ = json.Marshal(map[string]any{"id": req.ID, "result": result})
		}
		conn.Write(append(out, '\r', '\n'))
	}
}

func (fb *fakeBulb) requests() []request {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]request(nil), fb.received...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBulb(t *testing.T, fb *fakeBulb, opts ...Option) *Bulb {
	opts = append([]Option{WithPort(fb.port()), WithLogger(testLogger()), WithTimeout(2 * time.Second)}, opts...)
	b, err := NewBulb("127.0.0.1", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestNewBulb_RequiresHost(t *testing.T) {
	_, err := NewBulb("")
	assert.Error(t, err)
}

func TestBulb_GetProperties(t *testing.T) {
	fb := newFakeBulb(t)
	b := newTestBulb(t, fb)

	props, err := b.GetProperties(context.Background())
	require.NoError(t, err)

	assert.True(t, props.IsOn())
	assert.Equal(t, 80, props.Int("bright"))
	assert.True(t, props.IsEmpty("bg_power"))
	assert.Equal(t, BulbTypeColor, b.BulbType())

	reqs := fb.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "get_prop", reqs[0].Method)
	assert.Len(t, reqs[0].Params, len(AllProperties))
}

func TestBulb_SkipsNotifications(t *testing.T) {
	fb := newFakeBulb(t)
	fb.notify = true
	b := newTestBulb(t, fb)

	require.NoError(t, b.TurnOff(context.Background(), LightTypeMain))

	props := b.LastProperties()
	assert.Equal(t, "42", props.Get("bright"))
	assert.Equal(t, "16711680", props.Get("rgb"))
	assert.Equal(t, "off", props.Get("power"))
}

func TestBulb_CommandError(t *testing.T) {
	fb := newFakeBulb(t)
	fb.failWith = &CommandError{Code: -1, Message: "unsupported method"}
	b := newTestBulb(t, fb)

	err := b.Toggle(context.Background(), LightTypeMain)
	require.Error(t, err)
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, -1, cmdErr.Code)
	assert.Equal(t, "unsupported method", cmdErr.Message)
}

func TestBulb_Commands(t *testing.T) {
	fb := newFakeBulb(t)
	b := newTestBulb(t, fb, WithModel("color2"), WithEffect(500*time.Millisecond))
	ctx := context.Background()

	require.NoError(t, b.SetBrightness(ctx, LightTypeMain, 150))
	require.NoError(t, b.SetColorTemp(ctx, LightTypeAmbient, 1000))
	require.NoError(t, b.SetRGB(ctx, LightTypeMain, 255, 0, 0))
	require.NoError(t, b.SetPowerMode(ctx, PowerModeMoonlight))

	reqs := fb.requests()
	require.Len(t, reqs, 4)

	assert.Equal(t, "set_bright", reqs[0].Method)
	assert.Equal(t, []any{float64(100), "smooth", float64(500)}, reqs[0].Params)

	// color2 starts at 2700K
	assert.Equal(t, "bg_set_ct_abx", reqs[1].Method)
	assert.Equal(t, float64(2700), reqs[1].Params[0])

	assert.Equal(t, "set_rgb", reqs[2].Method)
	assert.Equal(t, float64(16711680), reqs[2].Params[0])

	assert.Equal(t, "set_power", reqs[3].Method)
	assert.Equal(t, []any{"on", "smooth", float64(500), float64(PowerModeMoonlight)}, reqs[3].Params)

	assert.True(t, b.LastProperties().IsNightlight())
	assert.Equal(t, "2700", b.LastProperties().Get("bg_ct"))
}

func TestBulb_ColorCommandsTrackColorMode(t *testing.T) {
	fb := newFakeBulb(t)
	b := newTestBulb(t, fb)
	ctx := context.Background()

	_, err := b.GetProperties(ctx, "color_mode", "rgb")
	require.NoError(t, err)
	require.Equal(t, ColorModeColorTemp, b.LastProperties().Get("color_mode"))

	require.NoError(t, b.SetRGB(ctx, LightTypeMain, 0, 0, 255))
	assert.Equal(t, ColorModeRGB, b.LastProperties().Get("color_mode"))
	assert.Equal(t, "255", b.LastProperties().Get("rgb"))

	require.NoError(t, b.SetColorTemp(ctx, LightTypeMain, 3000))
	assert.Equal(t, ColorModeColorTemp, b.LastProperties().Get("color_mode"))

	// the ambient light has its own mode and leaves the main one alone
	require.NoError(t, b.SetRGB(ctx, LightTypeAmbient, 0, 255, 0))
	assert.Equal(t, ColorModeRGB, b.LastProperties().Get("bg_lmode"))
	assert.Equal(t, ColorModeColorTemp, b.LastProperties().Get("color_mode"))
}

func TestBulb_SetDefault(t *testing.T) {
	fb := newFakeBulb(t)
	b := newTestBulb(t, fb)

	require.NoError(t, b.SetDefault(context.Background(), LightTypeAmbient))
	reqs := fb.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "bg_set_default", reqs[0].Method)
	assert.Empty(t, reqs[0].Params)
}

func TestBulb_SuddenEffect(t *testing.T) {
	fb := newFakeBulb(t)
	b := newTestBulb(t, fb, WithEffect(0))

	require.NoError(t, b.TurnOn(context.Background(), LightTypeAmbient))
	reqs := fb.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "bg_set_power", reqs[0].Method)
	assert.Equal(t, []any{"on", "sudden", float64(0)}, reqs[0].Params)
	assert.Equal(t, "on", b.LastProperties().Get("bg_power"))
}

func TestBulb_ReconnectsAfterClose(t *testing.T) {
	fb := newFakeBulb(t)
	b := newTestBulb(t, fb)
	ctx := context.Background()

	_, err := b.GetProperties(ctx, "power")
	require.NoError(t, err)
	require.NoError(t, b.Close())
	_, err = b.GetProperties(ctx, "power")
	require.NoError(t, err)
	assert.Len(t, fb.requests(), 2)
}

func TestBulb_ConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	b, err := NewBulb("127.0.0.1", WithPort(port), WithLogger(testLogger()), WithTimeout(time.Second))
	require.NoError(t, err)
	_, err = b.GetProperties(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:"+strconv.Itoa(port))
}

func TestBulb_CapabilitiesSetsModel(t *testing.T) {
	calls := 0
	b, err := NewBulb("192.168.1.239", WithLogger(testLogger()), WithProber(func(ctx context.Context, host string) (Capabilities, error) {
		calls++
		assert.Equal(t, "192.168.1.239", host)
		return Capabilities{"id": "0x000000000015243f", "model": "ceiling4"}, nil
	}))
	require.NoError(t, err)

	caps, err := b.Capabilities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0x000000000015243f", caps.ID())
	assert.Equal(t, "ceiling4", b.Model())
	assert.True(t, b.ModelSpecs().NightLight)

	_, err = b.Capabilities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
