package model

// MonitorResponse is the payload of the monitoring stats endpoint
type MonitorResponse struct {
	Status      string          `json:"status"`
	Connections ConnectionStats `json:"connections"`
	Pipeline    PipelineStats   `json:"pipeline"`
}

// ConnectionStats summarizes the gateway's live connections
type ConnectionStats struct {
	OnlineUsers         int                  `json:"onlineUsers"`
	TotalConnections    int                  `json:"totalConnections"`
	ActiveConversations int                  `json:"activeConversations"`
	Users               []UserConnectionInfo `json:"users"`
}

// UserConnectionInfo is one user's connection count (several open tabs
// count separately)
type UserConnectionInfo struct {
	UserID      string `json:"userId"`
	Connections int    `json:"connections"`
}

// PipelineStats counts message and receipt traffic since startup
type PipelineStats struct {
	MessagesSent   uint64 `json:"messagesSent"`
	MessagesFailed uint64 `json:"messagesFailed"`
	ReceiptBatches uint64 `json:"receiptBatches"`
}
