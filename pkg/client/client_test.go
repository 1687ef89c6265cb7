package client

import (
	"context"
	"testing"
	"time"
)

func TestClientConfig(t *testing.T) {
	cfg := ClientConfig{
		Address:      "localhost:50051",
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
	}

	if cfg.Address != "localhost:50051" {
		t.Errorf("Address = %s, want localhost:50051", cfg.Address)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
}

func TestNewGRPCClient(t *testing.T) {
	cfg := ClientConfig{
		Address:      "127.0.0.1:0",
		Timeout:      time.Second,
		MaxRetries:   2,
		RetryBackoff: 10 * time.Millisecond,
	}

	conn, err := NewGRPCClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewGRPCClient() error = %v", err)
	}
	defer conn.Close()

	if conn == nil {
		t.Fatal("expected non-nil connection")
	}
}

func TestNewGRPCClient_ZeroRetries(t *testing.T) {
	cfg := ClientConfig{
		Address:      "127.0.0.1:0",
		Timeout:      time.Second,
		MaxRetries:   0,
		RetryBackoff: 10 * time.Millisecond,
	}

	conn, err := NewGRPCClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewGRPCClient() error = %v", err)
	}
	defer conn.Close()
}
