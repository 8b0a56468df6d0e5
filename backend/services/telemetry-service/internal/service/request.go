package service

// MeterReadingRequest is the wire body of a meter reading. Pointer fields tell a missing value
// apart from an explicit zero.
type MeterReadingRequest struct {
	MeterID       *string  `json:"meterId"`
	KwhConsumedAC *float64 `json:"kwhConsumedAc"`
	Voltage       *float64 `json:"voltage"`
	Timestamp     *string  `json:"timestamp"`
}

// ToInput checks that every field is present and parses the timestamp.
func (req MeterReadingRequest) ToInput() (MeterReadingInput, error) {
	switch {
	case req.MeterID == nil:
		return MeterReadingInput{}, requiredField("meterId")
	case req.KwhConsumedAC == nil:
		return MeterReadingInput{}, requiredField("kwhConsumedAc")
	case req.Voltage == nil:
		return MeterReadingInput{}, requiredField("voltage")
	case req.Timestamp == nil:
		return MeterReadingInput{}, requiredField("timestamp")
	}
	ts, err := ParseTimestamp(*req.Timestamp)
	if err != nil {
		return MeterReadingInput{}, err
	}
	return MeterReadingInput{
		MeterID:       *req.MeterID,
		KwhConsumedAC: *req.KwhConsumedAC,
		Voltage:       *req.Voltage,
		Timestamp:     ts,
	}, nil
}

// VehicleReadingRequest is the wire body of a vehicle reading, shared by REST and MQTT.
type VehicleReadingRequest struct {
	VehicleID      *string  `json:"vehicleId"`
	ChargerID      *string  `json:"chargerId"`
	SoC            *float64 `json:"soc"`
	KwhDeliveredDC *float64 `json:"kwhDeliveredDc"`
	BatteryTemp    *float64 `json:"batteryTemp"`
	Timestamp      *string  `json:"timestamp"`
}

// ToInput checks that every field is present and parses the timestamp.
func (req VehicleReadingRequest) ToInput() (VehicleReadingInput, error) {
	switch {
	case req.VehicleID == nil:
		return VehicleReadingInput{}, requiredField("vehicleId")
	case req.ChargerID == nil:
		return VehicleReadingInput{}, requiredField("chargerId")
	case req.SoC == nil:
		return VehicleReadingInput{}, requiredField("soc")
	case req.KwhDeliveredDC == nil:
		return VehicleReadingInput{}, requiredField("kwhDeliveredDc")
	case req.BatteryTemp == nil:
		return VehicleReadingInput{}, requiredField("batteryTemp")
	case req.Timestamp == nil:
		return VehicleReadingInput{}, requiredField("timestamp")
	}
	ts, err := ParseTimestamp(*req.Timestamp)
	if err != nil {
		return VehicleReadingInput{}, err
	}
	return VehicleReadingInput{
		VehicleID:      *req.VehicleID,
		ChargerID:      *req.ChargerID,
		SoC:            *req.SoC,
		KwhDeliveredDC: *req.KwhDeliveredDC,
		BatteryTemp:    *req.BatteryTemp,
		Timestamp:      ts,
	}, nil
}

func requiredField(field string) error {
	return &ValidationError{Field: field, Reason: "is required"}
}
