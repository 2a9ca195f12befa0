package vitals

import (
	"sort"
	"time"
)

// Point is one chart sample. Value is nil for a missing reading.
type Point struct {
	At    time.Time `json:"t"`
	Value *float64  `json:"v"`
	Zone  Zone      `json:"zone"`
}

// SeriesFor returns every observation of signal as points ascending by time.
// Equal timestamps keep insertion order. The input is not modified.
func SeriesFor(list []Observation, signal SignalType) []Point {
	points := make([]Point, 0)
	for _, o := range list {
		if o.Type != signal {
			continue
		}
		p := Point{At: o.Timestamp, Zone: o.Zone}
		if o.Value != nil {
			v := *o.Value
			p.Value = &v
		}
		points = append(points, p)
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].At.Before(points[j].At)
	})
	return points
}

// Window keeps points with from <= At < to. Zero bounds are open.
func Window(points []Point, from, to time.Time) []Point {
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if !from.IsZero() && p.At.Before(from) {
			continue
		}
		if !to.IsZero() && !p.At.Before(to) {
			continue
		}
		out = append(out, p)
	}
	return out
}
