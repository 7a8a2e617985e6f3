package gateway

import (
	"github.com/park285/cheese-relay/internal/room"
	"github.com/park285/cheese-relay/pkg/relaydto"
)

// snapshot is the room_state payload. Connection handles stay private.
func snapshot(r *room.Room) relaydto.RoomState {
	players := make([]relaydto.Player, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, relaydto.Player{UID: p.UID, Color: string(p.Color)})
	}
	return relaydto.RoomState{
		Code:       r.Code,
		Players:    players,
		SideToMove: string(r.SideToMove),
		State:      stateDTO(r.State),
	}
}

func stateDTO(s room.GameState) relaydto.GameState {
	out := relaydto.GameState{Position: s.Position}
	if s.LastMove != nil {
		mv := moveDTO(*s.LastMove)
		out.LastMove = &mv
	}
	return out
}

func moveDTO(mv room.Move) relaydto.Move {
	out := relaydto.Move{
		From:             mv.From,
		To:               mv.To,
		IsCastle:         mv.IsCastle,
		IsEnPassant:      mv.IsEnPassant,
		IsDoublePawnPush: mv.IsDoublePawnPush,
	}
	if mv.Promo != nil {
		p := *mv.Promo
		out.Promo = &p
	}
	return out
}

func moveDetail(mv room.Move, position string) map[string]any {
	d := map[string]any{"from": mv.From, "to": mv.To, "position": position}
	if mv.Promo != nil {
		d["promo"] = *mv.Promo
	}
	return d
}
