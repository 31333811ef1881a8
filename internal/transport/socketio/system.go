package socketio

import (
	"os"

	"github.com/zishang520/socket.io/servers/socket/v3"

	"github.com/edumarques81/wavequeue/internal/version"
)

// SystemInfo describes the running server.
type SystemInfo struct {
	Host      string       `json:"host"`
	Version   version.Info `json:"version"`
	Clients   int          `json:"clients"`
	External  int          `json:"externalClients"`
	Library   bool         `json:"library"`
	Cache     bool         `json:"cache"`
	QueueSize int          `json:"queueLength"`
}

// GetSystemInfo returns information about this server instance.
func (s *Server) GetSystemInfo() SystemInfo {
	info := SystemInfo{
		Version:   version.GetInfo(),
		Clients:   s.ClientCount(),
		External:  s.limiter.ExternalCount(),
		Library:   s.library != nil,
		QueueSize: len(s.engine.Snapshot().Queue),
	}
	if s.library != nil {
		info.Cache = s.library.IsCacheEnabled()
	}
	if hostname, err := os.Hostname(); err == nil {
		info.Host = hostname
	}
	return info
}

func (s *Server) registerSystemHandlers(client *socket.Socket) {
	client.On("getSystemInfo", func(args ...any) {
		client.Emit("pushSystemInfo", s.GetSystemInfo())
	})
}
