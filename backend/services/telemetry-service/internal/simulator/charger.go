// Package simulator drives a synthetic fleet against the telemetry service: chargers speak
// OCPP 1.6-J over websocket and vehicles publish readings over MQTT or REST.
package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"fleetpower/backend/services/telemetry-service/internal/ocpp"
	"fleetpower/backend/services/telemetry-service/internal/ocpp/protocol"
)

var (
	ErrCallTimeout = errors.New("simulator: call timed out")
	ErrClosed      = errors.New("simulator: connection closed")
)

var messageID = uuid.NewString

type callReply struct {
	payload json.RawMessage
	err     error
}

// ChargerClient is the charge point side of an OCPP-J session. Calls are correlated with
// their CALLRESULT or CALLERROR by unique id.
type ChargerClient struct {
	stationID string
	conn      *websocket.Conn
	timeout   time.Duration
	logger    *zap.Logger

	writeMu sync.Mutex
	mu      sync.Mutex
	pending map[string]chan callReply

	done      chan struct{}
	closeOnce sync.Once
}

// DialCharger opens an OCPP session for stationID against the endpoint at rawURL.
func DialCharger(ctx context.Context, rawURL, stationID string, timeout time.Duration, logger *zap.Logger) (*ChargerClient, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse ocpp url: %w", err)
	}
	q := u.Query()
	q.Set("station_id", stationID)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{
		Subprotocols:     []string{"ocpp1.6"},
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", stationID, err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &ChargerClient{
		stationID: stationID,
		conn:      conn,
		timeout:   timeout,
		logger:    logger.With(zap.String("station_id", stationID)),
		pending:   make(map[string]chan callReply),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *ChargerClient) StationID() string {
	return c.stationID
}

// Call sends a CALL and decodes the CALLRESULT payload into resp. A CALLERROR is returned
// as *ocpp.CallError.
func (c *ChargerClient) Call(ctx context.Context, action string, req, resp interface{}) error {
	id := messageID()
	frame, err := json.Marshal([]interface{}{protocol.MessageTypeCall, id, action, req})
	if err != nil {
		return fmt.Errorf("encode %s: %w", action, err)
	}

	reply := make(chan callReply, 1)
	c.mu.Lock()
	c.pending[id] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(frame); err != nil {
		return fmt.Errorf("send %s: %w", action, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case r := <-reply:
		if r.err != nil {
			return r.err
		}
		if resp == nil {
			return nil
		}
		return json.Unmarshal(r.payload, resp)
	case <-timer.C:
		return ErrCallTimeout
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *ChargerClient) BootNotification(ctx context.Context, vendor, model string) (*protocol.BootNotificationResponse, error) {
	var resp protocol.BootNotificationResponse
	err := c.Call(ctx, protocol.ActionBootNotification, protocol.BootNotificationRequest{
		ChargePointVendor: vendor,
		ChargePointModel:  model,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *ChargerClient) Heartbeat(ctx context.Context) (*protocol.HeartbeatResponse, error) {
	var resp protocol.HeartbeatResponse
	if err := c.Call(ctx, protocol.ActionHeartbeat, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *ChargerClient) StatusNotification(ctx context.Context, connectorID int, status string) error {
	return c.Call(ctx, protocol.ActionStatusNotification, protocol.StatusNotificationRequest{
		ConnectorID:     connectorID,
		ConnectorStatus: status,
		ErrorCode:       "NoError",
		Timestamp:       time.Now().UTC(),
	}, nil)
}

// SendMeterValues reports the cumulative import register in Wh and the line voltage.
func (c *ChargerClient) SendMeterValues(ctx context.Context, connectorID int, registerWh, voltage float64, ts time.Time) error {
	return c.Call(ctx, protocol.ActionMeterValues, protocol.MeterValuesRequest{
		ConnectorID: connectorID,
		MeterValue: []protocol.MeterValue{{
			Timestamp: ts.UTC(),
			SampledValue: []protocol.SampledValue{
				{Value: strconv.FormatFloat(registerWh, 'f', 1, 64), Measurand: protocol.MeasurandEnergyRegister, Unit: protocol.UnitWh},
				{Value: strconv.FormatFloat(voltage, 'f', 1, 64), Measurand: protocol.MeasurandVoltage, Unit: "V"},
			},
		}},
	}, nil)
}

func (c *ChargerClient) write(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *ChargerClient) readLoop() {
	defer c.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Info("ocpp session ended", zap.Error(err))
			}
			return
		}
		id, reply, err := decodeReply(data)
		if err != nil {
			c.logger.Warn("ignoring ocpp frame", zap.Error(err))
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[id]
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("reply without pending call", zap.String("message_id", id))
			continue
		}
		ch <- reply
	}
}

// decodeReply reads a CALLRESULT [3,id,payload] or CALLERROR [4,id,code,description,details].
func decodeReply(data []byte) (string, callReply, error) {
	var frame []json.RawMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		return "", callReply{}, err
	}
	if len(frame) < 3 {
		return "", callReply{}, errors.New("short frame")
	}
	var msgType int
	var id string
	if err := json.Unmarshal(frame[0], &msgType); err != nil {
		return "", callReply{}, err
	}
	if err := json.Unmarshal(frame[1], &id); err != nil {
		return "", callReply{}, err
	}

	switch msgType {
	case protocol.MessageTypeCallResult:
		return id, callReply{payload: frame[2]}, nil
	case protocol.MessageTypeCallError:
		var code, description string
		_ = json.Unmarshal(frame[2], &code)
		if len(frame) > 3 {
			_ = json.Unmarshal(frame[3], &description)
		}
		return id, callReply{err: ocpp.NewCallError(code, description)}, nil
	default:
		return "", callReply{}, fmt.Errorf("unexpected message type %d", msgType)
	}
}

// Close ends the session. Pending calls fail with ErrClosed.
func (c *ChargerClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
}
