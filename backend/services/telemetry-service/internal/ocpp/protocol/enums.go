package protocol

// OCPP-J message type ids.
const (
	MessageTypeCall       = 2
	MessageTypeCallResult = 3
	MessageTypeCallError  = 4
)

// Actions accepted from chargers.
const (
	ActionBootNotification   = "BootNotification"
	ActionHeartbeat          = "Heartbeat"
	ActionStatusNotification = "StatusNotification"
	ActionMeterValues        = "MeterValues"
)

// Registration status values.
const (
	RegistrationAccepted = "Accepted"
	RegistrationRejected = "Rejected"
)

// StatusNotification status values (subset).
const (
	ConnectorAvailable   = "Available"
	ConnectorUnavailable = "Unavailable"
	ConnectorCharging    = "Charging"
	ConnectorFinishing   = "Finishing"
	ConnectorPreparing   = "Preparing"
	ConnectorFaulted     = "Faulted"
	ConnectorReserved    = "Reserved"
)

// CALLERROR codes (subset).
const (
	ErrorNotImplemented     = "NotImplemented"
	ErrorFormationViolation = "FormationViolation"
	ErrorInternalError      = "InternalError"
)

// Measurands read from MeterValues.
const (
	MeasurandEnergyRegister = "Energy.Active.Import.Register"
	MeasurandEnergyInterval = "Energy.Active.Import.Interval"
	MeasurandVoltage        = "Voltage"
)

// Units of measure for energy samples.
const (
	UnitWh  = "Wh"
	UnitKWh = "kWh"
)
