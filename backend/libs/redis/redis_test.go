package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestNewRedisClientPingsServer(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewRedisClient(srv.Addr(), "", 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()
}

func TestNewRedisClientRejectsEmptyAddr(t *testing.T) {
	if _, err := NewRedisClient("  ", "", 0); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}
