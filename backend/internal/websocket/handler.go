package websocket

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/dndsim/combat-engine/backend/internal/auth"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// CORS for the REST surface is handled by rs/cors; the socket
		// accepts any origin and relies on the token check below.
		return true
	},
}

var hub = NewHub()

var jwtManager *auth.JWTManager

func init() {
	go hub.Run()
}

// GetHub returns the process-wide hub instance.
func GetHub() *Hub {
	return hub
}

// SetJWTManager sets the JWT manager for WebSocket authentication.
func SetJWTManager(manager *auth.JWTManager) {
	jwtManager = manager
}

// HandleWebSocket upgrades a connection and subscribes it to one
// encounter's event stream. Browsers cannot set an Authorization header
// on a websocket dial, so the token also rides a query parameter.
func HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			var err error
			token, err = auth.ExtractTokenFromHeader(authHeader)
			if err != nil {
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}
		}
	}
	if token == "" {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	if jwtManager == nil {
		log.Println("JWT manager not initialized")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	claims, err := jwtManager.ValidateToken(token, auth.AccessToken)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	encounterID := r.URL.Query().Get("encounter")
	if encounterID == "" {
		http.Error(w, "encounter query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		id:          claims.UserID,
		username:    claims.Username,
		encounterID: encounterID,
		role:        claims.Role,
	}
	client.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
