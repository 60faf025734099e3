package yeelight

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReply = "HTTP/1.1 200 OK\r\n" +
	"Cache-Control: max-age=3600\r\n" +
	"Date: \r\n" +
	"Ext: \r\n" +
	"Location: yeelight://192.168.1.239:55443\r\n" +
	"Server: POSIX UPnP/1.0 YGLC/1\r\n" +
	"id: 0x000000000015243f\r\n" +
	"model: color\r\n" +
	"fw_ver: 18\r\n" +
	"support: get_prop set_default set_power toggle set_bright start_cf stop_cf set_scene cron_add cron_get cron_del set_ct_abx set_rgb\r\n" +
	"power: on\r\n" +
	"bright: 100\r\n" +
	"color_mode: 2\r\n" +
	"ct: 4000\r\n" +
	"rgb: 16711680\r\n" +
	"hue: 100\r\n" +
	"sat: 35\r\n" +
	"name: my_bulb\r\n"

func TestParseCapabilities(t *testing.T) {
	caps, err := ParseCapabilities([]byte(sampleReply))
	require.NoError(t, err)

	assert.Equal(t, "0x000000000015243f", caps.ID())
	assert.Equal(t, "color", caps.Model())
	assert.Equal(t, "18", caps.FirmwareVersion())
	assert.Equal(t, "my_bulb", caps.Name())
	assert.Equal(t, "192.168.1.239", caps.Host())
	assert.Equal(t, 55443, caps.Port())
	assert.Contains(t, caps.Support(), "set_ct_abx")
	assert.Equal(t, "", caps["date"])
}

func TestParseCapabilities_Notify(t *testing.T) {
	notify := strings.Replace(sampleReply, "HTTP/1.1 200 OK", "NOTIFY * HTTP/1.1", 1)
	caps, err := ParseCapabilities([]byte(notify))
	require.NoError(t, err)
	assert.Equal(t, "0x000000000015243f", caps.ID())
}

func TestParseCapabilities_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"search request", "M-SEARCH * HTTP/1.1\r\nST: wifi_bulb\r\n"},
		{"no id or location", "HTTP/1.1 200 OK\r\nServer: something\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCapabilities([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

// fakeResponder answers search requests on a local UDP port
func fakeResponder(t *testing.T, replies ...string) *net.UDPConn {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 2048)
		for {
			n, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			if !strings.Contains(string(buf[:n]), "ST: wifi_bulb") {
				continue
			}
			for _, r := range replies {
				conn.WriteToUDP([]byte(r), from)
			}
		}
	}()
	return conn
}

func TestSSDPDiscoverer_Discover(t *testing.T) {
	second := strings.NewReplacer("0x000000000015243f", "0x0000000000000002", "192.168.1.239", "192.168.1.240").Replace(sampleReply)
	responder := fakeResponder(t, sampleReply, sampleReply, second)

	d := NewSSDPDiscoverer(
		WithSSDPAddr(responder.LocalAddr().String()),
		WithSSDPTimeout(300*time.Millisecond),
		WithSSDPLogger(testLogger()),
	)
	found, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "0x000000000015243f", found[0].ID())
	assert.Equal(t, "0x0000000000000002", found[1].ID())
}

func TestSSDPDiscoverer_Probe(t *testing.T) {
	noLocation := strings.Replace(sampleReply, "Location: yeelight://192.168.1.239:55443\r\n", "", 1)
	responder := fakeResponder(t, noLocation)
	port := strings.TrimPrefix(responder.LocalAddr().String(), "127.0.0.1:")

	d := NewSSDPDiscoverer(WithProbePort(port), WithSSDPTimeout(time.Second), WithSSDPLogger(testLogger()))
	caps, err := d.Probe(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "0x000000000015243f", caps.ID())
	// Location falls back to the replying address
	assert.Equal(t, "127.0.0.1", caps.Host())
}

func TestSSDPDiscoverer_ProbeNoResponse(t *testing.T) {
	responder := fakeResponder(t)
	port := strings.TrimPrefix(responder.LocalAddr().String(), "127.0.0.1:")

	d := NewSSDPDiscoverer(WithProbePort(port), WithSSDPTimeout(100*time.Millisecond), WithSSDPLogger(testLogger()))
	_, err := d.Probe(context.Background(), "127.0.0.1")
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestMDNSDiscoverer(t *testing.T) {
	entry := func(instance string, ip net.IP) *zeroconf.ServiceEntry {
		e := zeroconf.NewServiceEntry(instance, mdnsService, mdnsDomain)
		e.AddrIPv4 = []net.IP{ip}
		return e
	}

	var probed []string
	d := NewMDNSDiscoverer(200*time.Millisecond, func(ctx context.Context, host string) (Capabilities, error) {
		probed = append(probed, host)
		return Capabilities{"id": "0x1", "location": "yeelight://" + host + ":55443"}, nil
	}, testLogger())
	d.browse = func(ctx context.Context, entries chan<- *zeroconf.ServiceEntry) error {
		go func() {
			entries <- entry("yeelink-light-color1_miio1", net.IPv4(192, 168, 1, 239))
			entries <- entry("yeelink-light-color1_miio1", net.IPv4(192, 168, 1, 239))
			entries <- entry("zhimi-airpurifier-m1_miio2", net.IPv4(192, 168, 1, 50))
			close(entries)
		}()
		return nil
	}

	found, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, []string{"192.168.1.239"}, probed)
	// model filled in from the instance name
	assert.Equal(t, "color1", found[0].Model())
}
