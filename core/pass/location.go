package pass

// Location marks a place where the pass becomes relevant.
type Location struct {
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Altitude     *float64 `json:"altitude,omitempty"`
	MaxDistance  *float64 `json:"maxDistance,omitempty"`
	RelevantText string   `json:"relevantText,omitempty"`
}

func (l Location) clone() Location {
	out := l
	if l.Altitude != nil {
		altitude := *l.Altitude
		out.Altitude = &altitude
	}
	if l.MaxDistance != nil {
		distance := *l.MaxDistance
		out.MaxDistance = &distance
	}
	return out
}

func (l Location) WithAltitude(meters float64) Location {
	out := l.clone()
	out.Altitude = &meters
	return out
}

func (l Location) WithMaxDistance(meters float64) Location {
	out := l.clone()
	out.MaxDistance = &meters
	return out
}
