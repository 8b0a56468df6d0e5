package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxMessageSize = 1024 * 1024
	readTimeout    = 60 * time.Second
	sendBuffer     = 16
)

// MessageProcessor handles raw OCPP messages.
type MessageProcessor interface {
	Process(ctx context.Context, stationID string, raw []byte) ([]byte, error)
}

// Connection represents active charger WebSocket connection.
type Connection struct {
	stationID    string
	ws           *websocket.Conn
	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	writeMu      sync.Mutex
	logger       *zap.Logger
	processor    MessageProcessor
	writeTimeout time.Duration
	onClose      func(conn *Connection)
}

// NewConnection builds connection wrapper.
func NewConnection(stationID string, ws *websocket.Conn, processor MessageProcessor, writeTimeout time.Duration, logger *zap.Logger, onClose func(*Connection)) *Connection {
	return &Connection{
		stationID:    stationID,
		ws:           ws,
		send:         make(chan []byte, sendBuffer),
		done:         make(chan struct{}),
		logger:       logger,
		processor:    processor,
		writeTimeout: writeTimeout,
		onClose:      onClose,
	}
}

// StationID returns identifier.
func (c *Connection) StationID() string {
	return c.stationID
}

// Start launches the write pump and blocks in the read pump until the connection ends.
func (c *Connection) Start(ctx context.Context) {
	go c.writePump(ctx)
	c.readPump(ctx)
}

func (c *Connection) readPump(ctx context.Context) {
	defer c.Close()
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.ws.ReadMessage()
		if err != nil {
			c.logger.Info("connection read closed", zap.String("station_id", c.stationID), zap.Error(err))
			return
		}

		response, err := c.processor.Process(ctx, c.stationID, message)
		if err != nil {
			c.logger.Warn("failed to process message", zap.String("station_id", c.stationID), zap.Error(err))
			continue
		}
		if response != nil {
			c.Send(response)
		}
	}
}

func (c *Connection) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.Close()
			return
		case <-c.done:
			_ = c.write(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.logger.Info("connection write failed", zap.String("station_id", c.stationID), zap.Error(err))
				c.Close()
				return
			}
		}
	}
}

// Send enqueues a message for writing. Messages to a closed connection are dropped.
func (c *Connection) Send(msg []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("dropping outgoing message, buffer full", zap.String("station_id", c.stationID))
	}
}

// Ping sends ping.
func (c *Connection) Ping() error {
	return c.write(websocket.PingMessage, []byte("ping"))
}

func (c *Connection) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}

// Close ends the connection once and notifies the owner.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
	})
}
