package flatten

import "fmt"

// Location holds the optional geospatial information embedded in a record's
// locatedAt sub-structure. Country and Geoprecision are passed through as raw
// sub-records; resolving them into nodes and edges is the flattener's job.
type Location struct {
	Geometry     string
	Country      Record
	Geoprecision Record
}

// ExtractLocation reads the locatedAt sub-structure of a record. When both
// lat and long are present it formats a WKT point, longitude first per the
// well-known-text convention.
func ExtractLocation(rec Record) Location {
	la, ok := rec["locatedAt"].(map[string]any)
	if !ok {
		return Location{}
	}

	var loc Location

	lat := la["lat"]
	lon := la["long"]
	if lat != nil && lon != nil {
		loc.Geometry = fmt.Sprintf("POINT(%v %v)", lon, lat)
	}

	loc.Country, _ = la["locationCountry"].(map[string]any)
	loc.Geoprecision, _ = la["geoprecision"].(map[string]any)

	return loc
}
