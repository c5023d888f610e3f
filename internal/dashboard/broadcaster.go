package dashboard

import (
	"encoding/json"
	"time"

	"github.com/mkravets/salondesk/internal/repo"
)

// Broadcaster bridges repository sync events onto the WebSocket fan-out.
// It satisfies repo.Broadcaster; pass it in repo.Deps.Events.
type Broadcaster struct {
	server *Server
}

// NewBroadcaster creates the bridge for server.
func NewBroadcaster(server *Server) *Broadcaster {
	return &Broadcaster{server: server}
}

func (b *Broadcaster) send(typ MessageType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	b.server.Broadcast(Message{Type: typ, Timestamp: time.Now(), Data: data})
}

// SyncStarted implements repo.Broadcaster.
func (b *Broadcaster) SyncStarted(collection string) {
	b.send(MessageTypeSyncStarted, map[string]string{"collection": collection})
}

// SyncCompleted implements repo.Broadcaster.
func (b *Broadcaster) SyncCompleted(collection string, result repo.SyncResult, err error) {
	data := SyncCompleteData{
		Collection: collection,
		Pushed:     result.Pushed,
		PushFailed: result.PushFailed,
		Deleted:    result.Deleted,
		Pulled:     result.Pulled,
		Pruned:     result.Pruned,
		Duration:   result.Duration,
	}
	if err != nil {
		data.Error = err.Error()
	}
	b.send(MessageTypeSyncComplete, data)
}

// EntityChanged implements repo.Broadcaster.
func (b *Broadcaster) EntityChanged(collection, id, action string) {
	b.send(MessageTypeEntityUpdate, EntityUpdateData{Collection: collection, ID: id, Action: action})
}

// PublishDirtyStats pushes per-collection dirty counts to clients.
func (b *Broadcaster) PublishDirtyStats(counts map[string]int) {
	total := 0
	for _, n := range counts {
		total += n
	}
	b.send(MessageTypeDirtyStats, DirtyStatsData{Counts: counts, Total: total})
}

// PublishConnectivity pushes a network state transition to clients.
func (b *Broadcaster) PublishConnectivity(online bool) {
	b.send(MessageTypeConnectivity, ConnectivityData{Online: online})
}
