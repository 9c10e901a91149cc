package dashboard

import (
	"time"

	"pingboard/internal/auth"
	"pingboard/internal/models"
)

// Series is a labeled data set ready for a chart widget.
type Series struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// BandwidthSeries prepares the per-device bandwidth bar chart. Devices
// without a reading chart as zero.
func BandwidthSeries(devices []models.Device) Series {
	s := Series{
		Labels: make([]string, len(devices)),
		Data:   make([]float64, len(devices)),
	}
	for i, d := range devices {
		s.Labels[i] = d.Name
		s.Data[i] = bandwidthOf(d)
	}
	return s
}

// SensorDistribution prepares the sensor pie chart for one device: each
// configured sensor contributes one equal slice.
func SensorDistribution(d models.Device) Series {
	s := Series{
		Labels: make([]string, len(d.Sensors)),
		Data:   make([]float64, len(d.Sensors)),
	}
	for i, sensor := range d.Sensors {
		s.Labels[i] = string(sensor)
		s.Data[i] = 1
	}
	return s
}

// Last7Days returns date labels for the trailing week, oldest first,
// ending today.
func Last7Days(now time.Time) []string {
	out := make([]string, 7)
	for i := 0; i < 7; i++ {
		out[i] = now.AddDate(0, 0, i-6).Format("2006-01-02")
	}
	return out
}

// LoginAttemptSeries buckets failed-attempt records into the trailing
// seven days, oldest first. Each record counts once, on the day of its
// last failure.
func LoginAttemptSeries(records map[string]auth.AttemptRecord, now time.Time) Series {
	s := Series{
		Labels: Last7Days(now),
		Data:   make([]float64, 7),
	}
	today := now.Truncate(24 * time.Hour)
	for _, rec := range records {
		at := time.UnixMilli(rec.Timestamp)
		days := int(today.Sub(at.Truncate(24*time.Hour)).Hours() / 24)
		if days >= 0 && days < 7 {
			s.Data[6-days]++
		}
	}
	return s
}

// AccountStatusSeries prepares the active/locked doughnut chart.
func AccountStatusSeries(totalUsers, lockedUsers int) Series {
	active := totalUsers - lockedUsers
	if active < 0 {
		active = 0
	}
	return Series{
		Labels: []string{"Active", "Locked"},
		Data:   []float64{float64(active), float64(lockedUsers)},
	}
}

// RoleDistribution prepares the admin/user pie chart.
func RoleDistribution(users []models.User) Series {
	var admins, regular float64
	for _, u := range users {
		if u.Role == models.RoleAdmin {
			admins++
		} else {
			regular++
		}
	}
	return Series{
		Labels: []string{"Admins", "Users"},
		Data:   []float64{admins, regular},
	}
}
