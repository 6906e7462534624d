package packet

import (
	"fmt"

	"github.com/gridwalk/gridwalk/internal/component"
)

// Message is one of the fixed packet shapes. The set is closed: only types in
// this package implement it.
type Message interface {
	Kind() Kind
	encode(w *Writer)
}

// MoveIntentRequest is sent by a client for every locally predicted step.
type MoveIntentRequest struct {
	SequenceID uint32
	Direction  component.GridDelta
}

// MovementStartBroadcast tells clients that OriginNetID started a step from
// Position (the tile before the move) in Direction.
type MovementStartBroadcast struct {
	OriginNetID int32
	Direction   component.GridDelta
	Position    component.GridPosition
}

// PlayerJoinData carries everything a client needs to spawn a replica.
type PlayerJoinData struct {
	NetID       int32
	Name        string
	Description string
	Vocation    uint8
	Gender      uint8
	Facing      component.Direction
	Speed       float32
	Position    component.GridPosition
}

type PlayerLeft struct {
	NetID int32
}

// JoinRequest is the first message a client sends after connecting.
type JoinRequest struct {
	Name        string
	Description string
	Vocation    uint8
	Gender      uint8
}

// Welcome answers JoinRequest with the id assigned to the new entity and the
// map the server simulates.
type Welcome struct {
	NetID     int32
	MapWidth  int32
	MapHeight int32
	TileSize  int32
}

type ChatRequest struct {
	Text string
}

type ChatBroadcast struct {
	NetID int32
	Name  string
	Text  string
}

func (MoveIntentRequest) Kind() Kind      { return KindMoveIntentRequest }
func (MovementStartBroadcast) Kind() Kind { return KindMovementStartBroadcast }
func (PlayerJoinData) Kind() Kind         { return KindPlayerJoinData }
func (PlayerLeft) Kind() Kind             { return KindPlayerLeft }
func (JoinRequest) Kind() Kind            { return KindJoinRequest }
func (Welcome) Kind() Kind                { return KindWelcome }
func (ChatRequest) Kind() Kind            { return KindChatRequest }
func (ChatBroadcast) Kind() Kind          { return KindChatBroadcast }

func (m MoveIntentRequest) encode(w *Writer) {
	w.WriteDU(m.SequenceID)
	w.WriteD(m.Direction.X)
	w.WriteD(m.Direction.Y)
}

func (m MovementStartBroadcast) encode(w *Writer) {
	w.WriteD(m.OriginNetID)
	w.WriteD(m.Direction.X)
	w.WriteD(m.Direction.Y)
	w.WriteD(m.Position.X)
	w.WriteD(m.Position.Y)
}

func (m PlayerJoinData) encode(w *Writer) {
	w.WriteD(m.NetID)
	w.WriteS(m.Name)
	w.WriteS(m.Description)
	w.WriteC(m.Vocation)
	w.WriteC(m.Gender)
	w.WriteC(byte(m.Facing))
	w.WriteF(m.Speed)
	w.WriteD(m.Position.X)
	w.WriteD(m.Position.Y)
}

func (m PlayerLeft) encode(w *Writer) {
	w.WriteD(m.NetID)
}

func (m JoinRequest) encode(w *Writer) {
	w.WriteS(m.Name)
	w.WriteS(m.Description)
	w.WriteC(m.Vocation)
	w.WriteC(m.Gender)
}

func (m Welcome) encode(w *Writer) {
	w.WriteD(m.NetID)
	w.WriteD(m.MapWidth)
	w.WriteD(m.MapHeight)
	w.WriteD(m.TileSize)
}

func (m ChatRequest) encode(w *Writer) {
	w.WriteS(m.Text)
}

func (m ChatBroadcast) encode(w *Writer) {
	w.WriteD(m.NetID)
	w.WriteS(m.Name)
	w.WriteS(m.Text)
}

// decoders is indexed by Kind. A nil entry is an unknown kind.
var decoders = [kindCount]func(r *Reader) Message{
	KindMoveIntentRequest: func(r *Reader) Message {
		return MoveIntentRequest{
			SequenceID: r.ReadDU(),
			Direction:  component.GridDelta{X: r.ReadD(), Y: r.ReadD()},
		}
	},
	KindMovementStartBroadcast: func(r *Reader) Message {
		return MovementStartBroadcast{
			OriginNetID: r.ReadD(),
			Direction:   component.GridDelta{X: r.ReadD(), Y: r.ReadD()},
			Position:    component.GridPosition{X: r.ReadD(), Y: r.ReadD()},
		}
	},
	KindPlayerJoinData: func(r *Reader) Message {
		return PlayerJoinData{
			NetID:       r.ReadD(),
			Name:        r.ReadS(),
			Description: r.ReadS(),
			Vocation:    r.ReadC(),
			Gender:      r.ReadC(),
			Facing:      component.Direction(r.ReadC()),
			Speed:       r.ReadF(),
			Position:    component.GridPosition{X: r.ReadD(), Y: r.ReadD()},
		}
	},
	KindPlayerLeft: func(r *Reader) Message {
		return PlayerLeft{NetID: r.ReadD()}
	},
	KindJoinRequest: func(r *Reader) Message {
		return JoinRequest{
			Name:        r.ReadS(),
			Description: r.ReadS(),
			Vocation:    r.ReadC(),
			Gender:      r.ReadC(),
		}
	},
	KindWelcome: func(r *Reader) Message {
		return Welcome{
			NetID:     r.ReadD(),
			MapWidth:  r.ReadD(),
			MapHeight: r.ReadD(),
			TileSize:  r.ReadD(),
		}
	},
	KindChatRequest: func(r *Reader) Message {
		return ChatRequest{Text: r.ReadS()}
	},
	KindChatBroadcast: func(r *Reader) Message {
		return ChatBroadcast{NetID: r.ReadD(), Name: r.ReadS(), Text: r.ReadS()}
	},
}

// Encode serializes m with its kind byte in front.
func Encode(m Message) []byte {
	w := NewWriterWithKind(m.Kind())
	m.encode(w)
	return w.Bytes()
}

// Decode parses one payload. Errors wrap ErrEmpty, ErrUnknownKind or
// ErrShortPacket.
func Decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	r := NewReader(data)
	k := r.Kind()
	if !k.Valid() || decoders[k] == nil {
		return nil, fmt.Errorf("decode kind %d: %w", data[0], ErrUnknownKind)
	}
	m := decoders[k](r)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode %s (%d bytes): %w", k, len(data), err)
	}
	return m, nil
}
