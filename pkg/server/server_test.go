package server

import (
	"testing"

	"nostrss/pkg/config"
	"nostrss/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func init() {
	logger.Init("error")
}

func TestNewServer(t *testing.T) {
	cfg := &config.Config{
		App: config.AppConfig{Name: "test-app"},
		GRPC: config.GRPCConfig{
			Address:   "127.0.0.1:0",
			KeepAlive: config.KeepAliveConfig{},
		},
	}

	srv := New(cfg)
	assert.NotNil(t, srv)
	assert.NotNil(t, srv.GetEngine())
}

func TestNewServer_WithOptions(t *testing.T) {
	cfg := &config.Config{
		App:  config.AppConfig{Name: "test-app"},
		GRPC: config.GRPCConfig{Address: "127.0.0.1:0"},
	}

	srv := NewWithOptions(cfg, &ServerOptions{})
	assert.NotNil(t, srv)
}
