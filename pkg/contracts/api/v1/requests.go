// Package api contains the request and response bodies of the dashboard HTTP API.
package api

// SliderRequest moves the slider to an index
type SliderRequest struct {
	Value *int `json:"value" validate:"required,gte=0"`
}

// DatesResponse lists the slider positions as dates
type DatesResponse struct {
	Dates []string `json:"dates"`
	Count int      `json:"count"`
}

// CountryColor pairs a country with its bubble colour
type CountryColor struct {
	Country string `json:"country"`
	Color   string `json:"color"`
}

// CountriesResponse lists the countries in legend order
type CountriesResponse struct {
	Countries []CountryColor `json:"countries"`
	Count     int            `json:"count"`
}

// SnapshotResponse is the rows of one date
type SnapshotResponse struct {
	Date  string      `json:"date"`
	Index int         `json:"index"`
	Data  interface{} `json:"data"`
}
