package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"pingboard/internal/models"
)

type fakeSource struct {
	devices  []models.Device
	statuses map[string]models.StatusSnapshot
}

func (f *fakeSource) List() []models.Device { return f.devices }
func (f *fakeSource) Statuses([]models.Device) map[string]models.StatusSnapshot {
	return f.statuses
}

func TestDeviceCollector(t *testing.T) {
	up := true
	down := false
	bw := 250.0
	source := &fakeSource{
		devices: []models.Device{
			{Name: "gateway", IP: "192.168.1.1"},
			{Name: "nas", IP: "192.168.1.50"},
		},
		statuses: map[string]models.StatusSnapshot{
			"gateway": {PingStatus: &up, BandwidthUsage: &bw},
			"nas":     {PingStatus: &down},
		},
	}

	c := &deviceCollector{
		source: source,
		upDesc: prometheus.NewDesc("pingboard_device_up", "up", []string{"device", "ip"}, nil),
		bandwidthDesc: prometheus.NewDesc("pingboard_device_bandwidth_mbps", "bw",
			[]string{"device", "ip"}, nil),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	got := map[string]float64{}
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			key := fam.GetName() + "{" + labelString(m) + "}"
			got[key] = m.GetGauge().GetValue()
		}
	}

	if got[`pingboard_device_up{device=gateway,ip=192.168.1.1}`] != 1 {
		t.Errorf("gateway up: %v", got)
	}
	if got[`pingboard_device_up{device=nas,ip=192.168.1.50}`] != 0 {
		t.Errorf("nas up: %v", got)
	}
	if got[`pingboard_device_bandwidth_mbps{device=gateway,ip=192.168.1.1}`] != 250 {
		t.Errorf("gateway bandwidth: %v", got)
	}
	// nas has no bandwidth reading and must not emit the metric
	if _, ok := got[`pingboard_device_bandwidth_mbps{device=nas,ip=192.168.1.50}`]; ok {
		t.Error("nas bandwidth should be absent")
	}
}

func labelString(m *dto.Metric) string {
	var parts []string
	for _, lp := range m.GetLabel() {
		parts = append(parts, lp.GetName()+"="+lp.GetValue())
	}
	return strings.Join(parts, ",")
}
