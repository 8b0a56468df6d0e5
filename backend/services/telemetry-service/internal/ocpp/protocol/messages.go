package protocol

import "time"

// BootNotificationRequest minimal subset.
type BootNotificationRequest struct {
	ChargePointVendor string `json:"chargePointVendor"`
	ChargePointModel  string `json:"chargePointModel"`
	ChargePointSerial string `json:"chargePointSerialNumber"`
	FirmwareVersion   string `json:"firmwareVersion"`
}

// BootNotificationResponse minimal response.
type BootNotificationResponse struct {
	CurrentTime time.Time `json:"currentTime"`
	Interval    int       `json:"interval"`
	Status      string    `json:"status"`
}

// StatusNotificationRequest payload.
type StatusNotificationRequest struct {
	ConnectorID     int       `json:"connectorId"`
	ConnectorStatus string    `json:"status"`
	ErrorCode       string    `json:"errorCode"`
	Info            string    `json:"info"`
	Timestamp       time.Time `json:"timestamp"`
}

// StatusNotificationResponse is empty (ack).
type StatusNotificationResponse struct{}

// HeartbeatResponse returns server time.
type HeartbeatResponse struct {
	CurrentTime time.Time `json:"currentTime"`
}

// SampledValue is one measurement inside a MeterValue. Value is a decimal string.
type SampledValue struct {
	Value     string `json:"value"`
	Context   string `json:"context,omitempty"`
	Measurand string `json:"measurand,omitempty"`
	Phase     string `json:"phase,omitempty"`
	Unit      string `json:"unit,omitempty"`
}

// MeterValue groups the samples taken at one point in time.
type MeterValue struct {
	Timestamp    time.Time      `json:"timestamp"`
	SampledValue []SampledValue `json:"sampledValue"`
}

// MeterValuesRequest payload for telemetry.
type MeterValuesRequest struct {
	ConnectorID   int          `json:"connectorId"`
	TransactionID *int         `json:"transactionId,omitempty"`
	MeterValue    []MeterValue `json:"meterValue"`
}

// MeterValuesResponse is empty (ack).
type MeterValuesResponse struct{}
