/*
Package handler provides the HTTP handlers and routing setup for the game
server.

This file contains the WebSocket handler: it upgrades the HTTP connection and
starts the client's read and write pumps. Connect rate limiting happens in the
router middleware; room creation happens later, when the client sends its join
event.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"humanorit/internal/app/game"
	"humanorit/internal/pkg/logx"
	"humanorit/internal/pkg/randx"
)

// HandleWebSocket creates the HandlerFunc processing WebSocket connection
// requests.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		connectionID := randx.ConnectionID()

		client := game.NewClient(deps.Manager, conn, connectionID)

		go client.WritePump()

		logx.Info("WebSocket connection established", "connection_id", connectionID)

		client.ReadPump()
	}
}
