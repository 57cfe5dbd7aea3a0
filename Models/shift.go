package Models

import "time"

// Shift is one check-in/check-out pair of a staff member. Location is where
// the device was at check-in.
type Shift struct {
	ID       string     `json:"id"`
	UserID   string     `json:"user_id"`
	Date     string     `json:"date"`
	Location GeoPoint   `json:"location"`
	Distance float64    `json:"distance_m"`
	CheckIn  time.Time  `json:"check_in"`
	CheckOut *time.Time `json:"check_out"`
}

func (s Shift) Open() bool {
	return s.CheckOut == nil
}

type CheckInRequest struct {
	Latitude  float64 `json:"latitude" validate:"required,latitude"`
	Longitude float64 `json:"longitude" validate:"required,longitude"`
}

func (r CheckInRequest) Point() GeoPoint {
	return GeoPoint{Latitude: r.Latitude, Longitude: r.Longitude}
}
