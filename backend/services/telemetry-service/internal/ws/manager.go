package ws

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager tracks charger connections.
type Manager struct {
	mu           sync.RWMutex
	connections  map[string]*Connection
	pingInterval time.Duration
	logger       *zap.Logger
}

// NewManager builds connection manager.
func NewManager(pingInterval time.Duration, logger *zap.Logger) *Manager {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		connections:  make(map[string]*Connection),
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// Add registers new connection, closing any previous connection of the same charger.
func (m *Manager) Add(conn *Connection) {
	m.mu.Lock()
	prev := m.connections[conn.StationID()]
	m.connections[conn.StationID()] = conn
	m.mu.Unlock()

	if prev != nil && prev != conn {
		m.logger.Info("replacing charger connection", zap.String("station_id", conn.StationID()))
		prev.Close()
	}
}

// Remove removes conn if it is still the registered connection of its charger.
func (m *Manager) Remove(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.connections[conn.StationID()]; ok && current == conn {
		delete(m.connections, conn.StationID())
	}
}

// Count returns the number of connected chargers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// StationIDs returns the connected charger ids in sorted order.
func (m *Manager) StationIDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.connections))
	for id := range m.connections {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Start begins ping loop to keep connections active. It closes all connections on return.
func (m *Manager) Start(ctx context.Context) {
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case <-ticker.C:
			for _, conn := range m.snapshot() {
				if err := conn.Ping(); err != nil {
					m.logger.Info("ping failed", zap.String("station_id", conn.StationID()), zap.Error(err))
					conn.Close()
				}
			}
		}
	}
}

func (m *Manager) snapshot() []*Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conns := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		conns = append(conns, conn)
	}
	return conns
}

func (m *Manager) closeAll() {
	for _, conn := range m.snapshot() {
		conn.Close()
	}
}
