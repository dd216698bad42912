// Package kml renders aggregated flight trajectories as a KML document.
// KML (Keyhole Markup Language) files can be viewed in Google Earth, Google
// Maps, and other mapping applications.
//
// These structures follow the KML 2.2 specification:
// https://developers.google.com/kml/documentation/kmlreference
package kml

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"adsb_tracker/internal/trajectory"
)

// KML is the root element of a KML document.
type KML struct {
	XMLName   xml.Name `xml:"kml"`
	Namespace string   `xml:"xmlns,attr"`
	Document  Document `xml:"Document"`
}

// Document contains the document metadata and features.
type Document struct {
	Name        string   `xml:"name"`
	Description string   `xml:"description,omitempty"`
	Folders     []Folder `xml:"Folder"`
}

// Folder groups one aircraft's trajectories.
type Folder struct {
	Name       string      `xml:"name"`
	Placemarks []Placemark `xml:"Placemark"`
}

// Placemark represents a geographic feature with geometry and metadata.
type Placemark struct {
	Name        string     `xml:"name"`
	Description string     `xml:"description,omitempty"`
	Style       *Style     `xml:"Style,omitempty"`
	LineString  LineString `xml:"LineString"`
}

// Style defines the visual appearance of a feature.
type Style struct {
	LineStyle LineStyle `xml:"LineStyle"`
}

// LineStyle defines how line paths are drawn.
type LineStyle struct {
	Color string `xml:"color"` // KML color format: aabbggrr.
	Width int    `xml:"width"`
}

// LineString represents a path of coordinates.
type LineString struct {
	Extrude      int    `xml:"extrude"`      // 1 draws a vertical line to the ground.
	AltitudeMode string `xml:"altitudeMode"` // "absolute": altitudes are true elevations.
	Coordinates  string `xml:"coordinates"`  // Whitespace-separated lon,lat,altitude triples.
}

// Stats counts what was actually rendered.
type Stats struct {
	Aircraft int
	Sessions int
	Points   int
}

// Build creates a KML document from an aggregated trajectory result: one
// folder per aircraft, one line path per session, colored deterministically
// by ICAO address.
func Build(result *trajectory.Result) (*KML, Stats) {
	var stats Stats

	folders := make([]Folder, 0, len(result.Aircraft))
	for _, aircraft := range result.Aircraft {
		stats.Aircraft++
		color := Color(aircraft.Icao)

		placemarks := make([]Placemark, 0, len(aircraft.Sessions))
		for _, sess := range aircraft.Sessions {
			stats.Sessions++
			stats.Points += len(sess.Points)
			placemarks = append(placemarks, buildPlacemark(sess, color))
		}

		folders = append(folders, Folder{
			Name:       fmt.Sprintf("ICAO: %s", aircraft.Icao),
			Placemarks: placemarks,
		})
	}

	doc := &KML{
		Namespace: "http://www.opengis.net/kml/2.2",
		Document: Document{
			Name:    "ADS-B Aircraft Trajectories",
			Folders: folders,
		},
	}
	return doc, stats
}

func buildPlacemark(sess trajectory.Session, color string) Placemark {
	// KML coordinates are in the format: longitude,latitude,altitude
	coords := make([]string, len(sess.Points))
	for i, p := range sess.Points {
		coords[i] = fmt.Sprintf("%.6f,%.6f,%.1f", *p.Lon, *p.Lat, *p.AltitudeM)
	}

	stats := sess.Stats
	description := fmt.Sprintf(
		"Flight: %s\nICAO: %s\nSession: %s\nStart: %s\nEnd: %s\nDuration: %.1f minutes\nPoints: %d\nMax altitude: %.0f m\nMin altitude: %.0f m",
		stats.Callsign,
		sess.Icao,
		sess.SessionID,
		stats.Start.Format("2006-01-02 15:04:05"),
		stats.End.Format("2006-01-02 15:04:05"),
		stats.DurationMin,
		stats.Points,
		stats.MaxAltitudeM,
		stats.MinAltitudeM,
	)

	return Placemark{
		Name:        fmt.Sprintf("%s (%s)", sess.Icao, stats.Start.Format("2006-01-02 15:04")),
		Description: description,
		Style: &Style{
			LineStyle: LineStyle{Color: color, Width: 3},
		},
		LineString: LineString{
			Extrude:      1,
			AltitudeMode: "absolute",
			Coordinates:  strings.Join(coords, " "),
		},
	}
}

// WriteFile marshals the document and writes it to path in one operation.
// Nothing is written when marshalling fails, and an unwritable path leaves
// no partial file behind.
func WriteFile(doc *KML, path string) error {
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal kml: %w", err)
	}

	output := xml.Header + string(data) + "\n"
	if err := os.WriteFile(path, []byte(output), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
