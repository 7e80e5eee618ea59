package model

// Route is a collection round: an ordered polyline plus the crushers
// serviced along it.
type Route struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Path  [][2]float64 `json:"path"` // [lat, lng] pairs
	Stops []RouteStop  `json:"stops"`
}

// RouteStop references one crusher on a route.
type RouteStop struct {
	CrusherID string `json:"crusherId"`
}
