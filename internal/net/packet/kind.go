package packet

import (
	"errors"
	"fmt"
)

// Kind is the first byte of every payload.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindMoveIntentRequest
	KindMovementStartBroadcast
	KindPlayerJoinData
	KindPlayerLeft
	KindJoinRequest
	KindWelcome
	KindChatRequest
	KindChatBroadcast

	kindCount
)

var kindNames = [kindCount]string{
	"Invalid",
	"MoveIntentRequest",
	"MovementStartBroadcast",
	"PlayerJoinData",
	"PlayerLeft",
	"JoinRequest",
	"Welcome",
	"ChatRequest",
	"ChatBroadcast",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Valid reports whether k names a known message.
func (k Kind) Valid() bool { return k > KindInvalid && k < kindCount }

var (
	ErrShortPacket = errors.New("packet too short")
	ErrUnknownKind = errors.New("unknown packet kind")
	ErrEmpty       = errors.New("empty packet")
)
