package models

// Position represents a geographical position with latitude, longitude and altitude (meters).
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	Alt float64 `json:"alt"`
}
