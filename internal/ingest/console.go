package ingest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"adsb_tracker/internal/dump1090"
)

// printSnapshot renders a snapshot as a human console view. Each cycle
// clears the screen and redraws, terminal-dashboard style.
func printSnapshot(w io.Writer, snap *dump1090.Snapshot, at time.Time) {
	fmt.Fprint(w, "\033[2J\033[H")

	fmt.Fprintf(w, "%s | Total messages: %d\n", at.Format("15:04:05"), snap.Messages)
	fmt.Fprintf(w, "Aircraft visible: %d\n", len(snap.Aircraft))
	fmt.Fprintln(w, "────────────────────────────────────────────────────────────────")

	if len(snap.Aircraft) == 0 {
		fmt.Fprintln(w, "No aircraft detected. Antenna working? Check the dump1090 console.")
		return
	}

	for _, ac := range snap.Aircraft {
		flight := "Unknown"
		if f := strings.TrimSpace(ac.Flight); f != "" {
			flight = f
		}
		messages := 0
		if ac.Messages != nil {
			messages = *ac.Messages
		}

		fmt.Fprintf(w, "\nICAO: %s | Flight: %s | Messages: %d\n", ac.Hex, flight, messages)

		if ac.Altitude != nil {
			ft := int(*ac.Altitude)
			fmt.Fprintf(w, "  Altitude: %d ft (%.0f m)\n", ft, dump1090.FeetToMeters(ft))
		}
		if ac.Lat != nil && ac.Lon != nil {
			fmt.Fprintf(w, "  Position: %.5f°, %.5f°\n", *ac.Lat, *ac.Lon)
		}
		if ac.Speed != nil {
			fmt.Fprintf(w, "  Speed: %d kt\n", *ac.Speed)
		}
		if ac.Track != nil {
			fmt.Fprintf(w, "  Track: %d°\n", *ac.Track)
		}
		if ac.RSSI != nil {
			fmt.Fprintf(w, "  Signal: %.1f dBFS\n", *ac.RSSI)
		}
		if ac.Seen != nil {
			fmt.Fprintf(w, "  Last seen: %.1fs ago\n", *ac.Seen)
		}
	}

	fmt.Fprintln(w, "\n────────────────────────────────────────────────────────────────")
}
