package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: ограничить Origin доверенными доменами перед выкаткой.
		return true
	},
}

type WebSocketHandler struct {
	hub               *brackets.Hub
	tournamentService services.TournamentService
}

func NewWebSocketHandler(hub *brackets.Hub, ts services.TournamentService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:               hub,
		tournamentService: ts,
	}
}

// ServeWs обрабатывает GET /ws/tournaments/{name}. Комната соответствует
// внутреннему имени турнира; несуществующий турнир отклоняется до апгрейда.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		http.Error(w, "Missing tournament name", http.StatusBadRequest)
		return
	}

	if _, err := h.tournamentService.GetStructure(r.Context(), name); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		serverErrorResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader сам отправляет HTTP-ошибку клиенту.
		log.Printf("Failed to upgrade connection for tournament %s: %v", name, err)
		return
	}

	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: name,
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
