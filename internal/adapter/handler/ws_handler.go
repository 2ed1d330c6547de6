package handler

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxMessage = 4096
)

// chatInbound is what browsers send over the chat socket.
type chatInbound struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func allowedOrigin(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(origins, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

// OrderChat upgrades to a websocket relaying the customer service chat of
// one order.
func (h *HTTPHandler) OrderChat(c *gin.Context) {
	sess, err := h.svc.Chat.Join(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("chat: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()

	events, closeSub, err := sess.Enter(ctx)
	if err != nil {
		log.Printf("chat: enter %s: %v", sess.Room, err)
		return
	}
	defer closeSub()

	go h.writeChat(ctx, cancel, conn, events)
	h.readChat(ctx, conn, sess)

	if err := sess.Leave(context.WithoutCancel(ctx)); err != nil {
		log.Printf("chat: leave %s: %v", sess.Room, err)
	}
}

func (h *HTTPHandler) readChat(ctx context.Context, conn *websocket.Conn, sess *service.ChatSession) {
	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var in chatInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("chat: read %s: %v", sess.Room, err)
			}
			return
		}
		var err error
		switch in.Type {
		case "heartbeat":
			err = sess.Heartbeat(ctx)
		case "message":
			err = sess.Say(ctx, in.Message)
		}
		if err != nil {
			log.Printf("chat: %s from %s in %s: %v", in.Type, sess.Username, sess.Room, err)
		}
	}
}

func (h *HTTPHandler) writeChat(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, events <-chan domain.ChatEvent) {
	defer cancel()
	// Unblocks readChat once the subscription ends.
	defer conn.Close()
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
