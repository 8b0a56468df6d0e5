package models

import "fmt"

// Ordering decides whether a status upsert may replace an existing row.
type Ordering string

const (
	// OrderingArrival always replaces the row: the last ingested reading wins.
	OrderingArrival Ordering = "arrival"
	// OrderingTimestamp replaces the row only when incoming.timestamp >= stored.timestamp.
	OrderingTimestamp Ordering = "timestamp"
)

// ParseOrdering maps a config value to an Ordering. Empty selects arrival.
func ParseOrdering(raw string) (Ordering, error) {
	switch Ordering(raw) {
	case "", OrderingArrival:
		return OrderingArrival, nil
	case OrderingTimestamp:
		return OrderingTimestamp, nil
	default:
		return "", fmt.Errorf("unknown projection ordering %q", raw)
	}
}
