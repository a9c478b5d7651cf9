package crdt

import (
	"net/http"

	"github.com/automerge/automerge-go"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

func upgradeRosterConnection(w http.ResponseWriter, r *http.Request) (*websocket.Conn, string, error) {
	encounterID := r.URL.Query().Get("encounter")
	if encounterID == "" {
		http.Error(w, "missing encounter", http.StatusBadRequest)
		return nil, "", http.ErrMissingFile
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade writes its own error response on failure.
		return nil, "", err
	}
	return conn, encounterID, nil
}

// syncRoster runs the automerge sync protocol for one peer editing a
// draft roster: receive a batch of changes, then flush every message the
// sync state wants to send back, until the peer hangs up.
func syncRoster(conn *websocket.Conn, doc *automerge.Doc) {
	state := automerge.NewSyncState(doc)
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}

		if _, err := state.ReceiveMessage(msg); err != nil {
			return
		}

		for {
			syncMsg, ok := state.GenerateMessage()
			if !ok {
				break
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, syncMsg.Bytes()); err != nil {
				return
			}
		}
	}
}

// SyncHandler is the websocket endpoint for collaborative roster edits
// on an encounter that has not started combat yet.
func SyncHandler(w http.ResponseWriter, r *http.Request) {
	conn, encounterID, err := upgradeRosterConnection(w, r)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	doc, err := LoadRoster(encounterID)
	if err != nil || doc == nil {
		http.Error(w, "failed to load roster", http.StatusInternalServerError)
		return
	}

	syncRoster(conn, doc)
}
