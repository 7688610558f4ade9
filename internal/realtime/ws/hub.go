package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/game-service/dto"
	"github.com/radieske/casino-platform/internal/game-service/session"
	"github.com/radieske/casino-platform/internal/realtime/registry"
	"github.com/radieske/casino-platform/pkg/contracts/events"
)

const maxChatLen = 280

// Sessions é o lado do session.Manager usado pelo hub
type Sessions interface {
	SubmitMove(ctx context.Context, sessionID, accountID string, seq int64, in session.MoveInput) (session.MoveResult, error)
	Leave(ctx context.Context, sessionID, accountID string) (*session.Session, error)
}

// Relay publica uma atualização para todas as réplicas (canal de sessões no Redis)
type Relay func(ctx context.Context, upd events.SessionUpdate) error

// Hub gerencia conexões WebSocket e assinaturas por sessão.
// subs: mapeia sessionID para o conjunto de clientes inscritos
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger
	reg      *registry.Registry
	sessions Sessions
	relay    Relay

	mu      sync.RWMutex
	subs    map[string]map[*client]struct{}
	clients map[string]*client // connID -> client
}

// client serializa as escritas: o gorilla aceita um único escritor por conexão
type client struct {
	id      string
	account string
	conn    *websocket.Conn
	wmu     sync.Mutex
}

func (c *client) send(v any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(v)
}

func (c *client) sendRaw(b []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(log *zap.Logger, reg *registry.Registry, sessions Sessions, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		log:      log,
		reg:      reg,
		sessions: sessions,
		subs:     make(map[string]map[*client]struct{}),
		clients:  make(map[string]*client),
	}
}

// UseRelay faz o chat sair pelo relay; a entrega aos clientes locais volta
// pelo assinante do canal, como nas demais atualizações de sessão.
func (h *Hub) UseRelay(r Relay) { h.relay = r }

// HandleWS gerencia o ciclo de vida de uma conexão (?userId=).
// Ao desconectar, as sessões abandonadas pela conta são encerradas via Leave.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("userId")
	if account == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{id: uuid.NewString(), account: account, conn: conn}
	if err := h.reg.Bind(c.id, account); err != nil {
		_ = conn.Close()
		return
	}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	defer h.disconnect(c)

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		h.handle(r.Context(), c, msg)
	}
}

func (h *Hub) handle(ctx context.Context, c *client, msg ClientMsg) {
	switch msg.Type {
	case "subscribe":
		h.subscribe(c, msg.SessionID)
	case "unsubscribe":
		h.unsubscribe(c, msg.SessionID)
	case "move":
		res, err := h.sessions.SubmitMove(ctx, msg.SessionID, c.account, msg.Seq, session.MoveInput{Action: msg.Action, Selection: msg.Selection})
		if err != nil {
			h.reply(c, ServerMsg{Type: "error", SessionID: msg.SessionID, Error: err.Error()})
			return
		}
		h.reply(c, ServerMsg{Type: "move_result", SessionID: msg.SessionID, Payload: dto.FromMoveResult(res)})
	case "leave":
		s, err := h.sessions.Leave(ctx, msg.SessionID, c.account)
		if err != nil {
			h.reply(c, ServerMsg{Type: "error", SessionID: msg.SessionID, Error: err.Error()})
			return
		}
		h.unsubscribe(c, msg.SessionID)
		h.reply(c, ServerMsg{Type: "left", SessionID: msg.SessionID, Payload: dto.FromSession(s)})
	case "chat":
		text := strings.TrimSpace(msg.Text)
		if text == "" || len(text) > maxChatLen {
			h.reply(c, ServerMsg{Type: "error", SessionID: msg.SessionID, Error: "invalid chat message"})
			return
		}
		h.chat(ctx, events.SessionUpdate{
			SessionID: msg.SessionID,
			Type:      "chat",
			AccountID: c.account,
			Payload:   map[string]string{"text": text},
			Ts:        time.Now().UTC(),
		})
	case "ping":
		h.reply(c, ServerMsg{Type: "pong"})
	default:
		h.reply(c, ServerMsg{Type: "error", Error: "unknown message type"})
	}
}

// chat sem relay, ou com o Redis fora, fica restrito aos clientes desta réplica
func (h *Hub) chat(ctx context.Context, upd events.SessionUpdate) {
	if h.relay != nil {
		err := h.relay(ctx, upd)
		if err == nil {
			return
		}
		h.log.Warn("chat relay failed, delivering locally", zap.String("sessionId", upd.SessionID), zap.Error(err))
	}
	h.Broadcast(upd)
}

func (h *Hub) reply(c *client, m ServerMsg) {
	if err := c.send(m); err != nil {
		h.log.Debug("ws write failed", zap.String("connId", c.id), zap.Error(err))
	}
}

func (h *Hub) subscribe(c *client, sessionID string) {
	if sessionID == "" {
		return
	}
	h.mu.Lock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[*client]struct{})
		h.subs[sessionID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	_ = h.reg.Track(c.id, sessionID)
}

func (h *Hub) unsubscribe(c *client, sessionID string) {
	h.mu.Lock()
	if set, ok := h.subs[sessionID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, sessionID)
		}
	}
	h.mu.Unlock()
	h.reg.Untrack(c.id, sessionID)
}

// disconnect remove a conexão de todas as assinaturas e aplica a semântica
// de abandono às sessões que a conta não acompanha em outra conexão
func (h *Hub) disconnect(c *client) {
	_ = c.conn.Close()
	h.mu.Lock()
	delete(h.clients, c.id)
	for sid, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, sid)
		}
	}
	h.mu.Unlock()

	d := h.reg.Drop(c.id)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, sid := range d.Sessions {
		_, err := h.sessions.Leave(ctx, sid, d.AccountID)
		switch {
		case errors.Is(err, session.ErrNotSeated):
			// só assistia à sessão
		case err != nil:
			h.log.Warn("leave on disconnect failed", zap.String("sessionId", sid), zap.String("accountId", d.AccountID), zap.Error(err))
		default:
			h.log.Info("player left on disconnect", zap.String("sessionId", sid), zap.String("accountId", d.AccountID))
		}
	}
}

// Broadcast envia a atualização para todos os clientes inscritos na sessão
func (h *Hub) Broadcast(update events.SessionUpdate) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[update.SessionID]))
	for c := range h.subs[update.SessionID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, err := json.Marshal(update)
	if err != nil {
		h.log.Error("ws marshal failed", zap.Error(err))
		return
	}
	for _, c := range targets {
		_ = c.sendRaw(b)
	}
}

// BroadcastBalance envia a atualização de saldo a todas as conexões da conta
func (h *Hub) BroadcastBalance(update events.BalanceUpdate) {
	conns := h.reg.Connections(update.AccountID)
	if len(conns) == 0 {
		return
	}
	b, err := json.Marshal(map[string]any{"type": "balance", "payload": update})
	if err != nil {
		return
	}
	h.mu.RLock()
	targets := make([]*client, 0, len(conns))
	for _, id := range conns {
		if c, ok := h.clients[id]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		_ = c.sendRaw(b)
	}
}
