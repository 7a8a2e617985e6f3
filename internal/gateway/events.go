package gateway

import (
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/cheese-relay/internal/journal"
	"github.com/park285/cheese-relay/internal/membership"
	"github.com/park285/cheese-relay/internal/room"
	"github.com/park285/cheese-relay/pkg/relaydto"
)

func (h *Hub) handleFrame(c *client, f relaydto.Frame, decodeErr error) {
	if c.closed {
		return
	}
	if decodeErr != nil {
		h.fail(c, "", room.ErrInvalidPayload)
		return
	}
	switch f.Event {
	case relaydto.EventJoinRoom:
		h.handleJoin(c, f.Data)
	case relaydto.EventMove:
		h.handleMove(c, f.Data)
	default:
		h.fail(c, f.Event, room.ErrUnknownEvent)
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// decodeJoin accepts only an object whose code and uid are non-empty strings.
func decodeJoin(data json.RawMessage) (code, uid string, err error) {
	if len(data) == 0 {
		return "", "", room.ErrJoinFieldsRequired
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", "", room.ErrInvalidPayload
	}
	code, okCode := fields["code"].(string)
	uid, okUID := fields["uid"].(string)
	code, uid = normalizeCode(code), strings.TrimSpace(uid)
	if !okCode || !okUID || code == "" || uid == "" {
		return "", "", room.ErrJoinFieldsRequired
	}
	return code, uid, nil
}

func (h *Hub) handleJoin(c *client, data json.RawMessage) {
	code, uid, err := decodeJoin(data)
	if err != nil {
		h.fail(c, relaydto.EventJoinRoom, err)
		return
	}
	r, ok := h.store.Lookup(code)
	if !ok {
		h.fail(c, relaydto.EventJoinRoom, room.ErrRoomNotFound)
		return
	}
	// switching uid inside the same room frees the old seat first
	if m, ok := h.members.Get(c.id); ok && m.Code == code && m.UID != uid {
		h.members.Clear(c.id)
		h.leave(m, c.id)
	}

	now := h.now()
	res, err := r.Join(uid, c.id, now)
	if err != nil {
		h.fail(c, relaydto.EventJoinRoom, err)
		return
	}
	if res.Reconnected && res.PrevConn != "" && res.PrevConn != c.id {
		h.dropStaleMembership(res.PrevConn, code, uid)
	}

	if prev, switched := h.members.Set(c.id, membership.Membership{Code: code, UID: uid}); switched {
		h.leave(prev, c.id)
	}

	event := journal.EventPlayerJoined
	if res.Reconnected {
		event = journal.EventPlayerRejoin
	}
	h.logger.Info("room_join",
		zap.String("code", code),
		zap.String("uid", uid),
		zap.String("conn", c.id),
		zap.String("color", string(res.Color)),
		zap.Bool("reconnected", res.Reconnected),
		zap.String("status", string(r.Status())),
	)
	h.journal.Record(journal.NewEntry(event, code, uid, now, map[string]any{"color": string(res.Color)}))

	h.sendEvent(c, relaydto.EventRoomJoined, relaydto.RoomJoined{Code: code, Color: string(res.Color)})
	if res.Started && res.Opponent != nil {
		h.sendTo(res.Opponent.Conn, relaydto.EventOpponentJoined, relaydto.OpponentJoined{})
	}
	h.broadcast(code, relaydto.EventRoomState, snapshot(r))
}

func (h *Hub) handleMove(c *client, data json.RawMessage) {
	m, ok := h.members.Get(c.id)
	if !ok {
		h.fail(c, relaydto.EventMove, room.ErrNotJoined)
		return
	}
	var req struct {
		Code any             `json:"code"`
		Move json.RawMessage `json:"move"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		h.fail(c, relaydto.EventMove, room.ErrInvalidPayload)
		return
	}
	code, ok := req.Code.(string)
	if !ok {
		h.fail(c, relaydto.EventMove, room.ErrInvalidPayload)
		return
	}
	if normalizeCode(code) != m.Code {
		h.fail(c, relaydto.EventMove, room.ErrRoomMismatch)
		return
	}
	r, ok := h.store.Lookup(m.Code)
	if !ok {
		h.fail(c, relaydto.EventMove, room.ErrRoomNotFound)
		return
	}
	now := h.now()
	mv, err := r.Move(m.UID, req.Move, now)
	if err != nil {
		h.fail(c, relaydto.EventMove, err)
		return
	}

	h.logger.Info("room_move",
		zap.String("code", m.Code),
		zap.String("uid", m.UID),
		zap.Int("from", mv.From),
		zap.Int("to", mv.To),
		zap.String("side_to_move", string(r.SideToMove)),
	)
	h.journal.Record(journal.NewEntry(journal.EventMoveApplied, m.Code, m.UID, now, moveDetail(mv, r.State.Position)))
	h.broadcast(m.Code, relaydto.EventMoveApplied, relaydto.MoveApplied{
		Move:       moveDTO(mv),
		SideToMove: string(r.SideToMove),
		State:      stateDTO(r.State),
	})
}

// leave unseats m.UID unless the seat has since been taken over by a
// newer connection.
func (h *Hub) leave(m membership.Membership, connID string) {
	r, ok := h.store.Lookup(m.Code)
	if !ok {
		return
	}
	if p := r.Player(m.UID); p == nil || p.Conn != connID {
		return
	}
	now := h.now()
	r.Leave(m.UID, now)
	h.logger.Info("room_leave",
		zap.String("code", m.Code),
		zap.String("uid", m.UID),
		zap.String("conn", connID),
		zap.String("status", string(r.Status())),
	)
	h.journal.Record(journal.NewEntry(journal.EventPlayerLeft, m.Code, m.UID, now, nil))
	h.broadcast(m.Code, relaydto.EventRoomState, snapshot(r))
}

// dropStaleMembership detaches a connection whose seat was taken over by a
// reconnect, so it stops receiving the room's broadcasts and cannot move.
func (h *Hub) dropStaleMembership(conn, code, uid string) {
	if m, ok := h.members.Get(conn); ok && m.Code == code && m.UID == uid {
		h.members.Clear(conn)
		h.logger.Debug("conn_superseded", zap.String("conn", conn), zap.String("code", code), zap.String("uid", uid))
	}
}

// fail sends an error_msg to c only.
func (h *Hub) fail(c *client, event string, err error) {
	fields := []zap.Field{zap.String("conn", c.id), zap.String("event", event), zap.Error(err)}
	var re *room.Error
	if errors.As(err, &re) {
		fields = append(fields, zap.String("kind", string(re.Kind)), zap.String("code", re.Code))
	}
	h.logger.Debug("event_rejected", fields...)
	h.sendEvent(c, relaydto.EventErrorMsg, relaydto.ErrorMsg{Message: h.errorText(err)})
}

func (h *Hub) errorText(err error) string {
	var re *room.Error
	if errors.As(err, &re) {
		return h.catalog.Text("errors."+re.Code, re.Args, re.Message)
	}
	return h.catalog.Text("errors.internal", nil, "Internal error")
}
