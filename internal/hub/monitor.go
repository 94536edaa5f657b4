package hub

import (
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/model"
)

// MonitorService gathers gateway statistics for the operations
// dashboard.
type MonitorService struct {
	hub *Hub
}

func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats reports connection, presence and pipeline counters.
func (ms *MonitorService) GetStats() model.MonitorResponse {
	connections := ms.getConnectionStats()

	status := "healthy"
	if connections.TotalConnections == 0 {
		status = "idle"
	}

	sent, failed := ms.hub.pipeline.Stats()

	return model.MonitorResponse{
		Status:      status,
		Connections: connections,
		Pipeline: model.PipelineStats{
			MessagesSent:   sent,
			MessagesFailed: failed,
			ReceiptBatches: ms.hub.receipts.Batches(),
		},
	}
}

func (ms *MonitorService) getConnectionStats() model.ConnectionStats {
	stats := model.ConnectionStats{
		Users: make([]model.UserConnectionInfo, 0),
	}

	for _, userID := range ms.hub.presence.OnlineUsers() {
		conns := ms.hub.presence.Connections(userID)
		stats.OnlineUsers++
		stats.TotalConnections += conns
		stats.Users = append(stats.Users, model.UserConnectionInfo{
			UserID:      userID,
			Connections: conns,
		})
	}

	// Active conversations per shard, counted from joined clients
	seen := make(map[string]bool)
	for _, shard := range ms.hub.shards {
		shard.RLock()
		for _, set := range shard.users {
			for _, client := range set {
				if conv := client.ActiveConversation(); conv != "" && !seen[conv] {
					seen[conv] = true
					stats.ActiveConversations++
				}
			}
		}
		shard.RUnlock()
	}

	return stats
}
