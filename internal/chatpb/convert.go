package chatpb

import (
	"time"

	"github.com/google/uuid"

	"groupchat/internal/chat"
	"groupchat/internal/vclock"
)

// ClockToPB converts a vclock.Clock to its wire form.
func ClockToPB(c vclock.Clock) *VectorClock {
	return &VectorClock{Clock: c.Copy()}
}

// ClockFromPB converts a wire clock to vclock.Clock. A missing clock is empty.
func ClockFromPB(pb *VectorClock) vclock.Clock {
	if pb == nil {
		return vclock.Clock{}
	}
	return vclock.Clock(pb.Clock).Copy()
}

// MessageToPB converts a chat.Message to its wire form.
func MessageToPB(m chat.Message) *ChatMessage {
	pb := &ChatMessage{
		GroupID:     m.GroupID,
		UserID:      m.SenderID,
		ProcessID:   int32(m.SenderProcess),
		Text:        m.Text,
		VectorClock: ClockToPB(m.Clock),
	}
	if m.ID != uuid.Nil {
		pb.MessageID = m.ID.String()
	}
	if !m.SentAt.IsZero() {
		pb.SentAtUnixMs = m.SentAt.UnixMilli()
	}
	return pb
}

// MessageFromPB converts a wire message to chat.Message. An unparsable
// message ID is treated as absent.
func MessageFromPB(pb *ChatMessage) chat.Message {
	if pb == nil {
		return chat.Message{}
	}
	m := chat.Message{
		GroupID:       pb.GroupID,
		SenderID:      pb.UserID,
		SenderProcess: int(pb.ProcessID),
		Text:          pb.Text,
		Clock:         ClockFromPB(pb.VectorClock),
	}
	if id, err := uuid.Parse(pb.MessageID); err == nil {
		m.ID = id
	}
	if pb.SentAtUnixMs != 0 {
		m.SentAt = time.UnixMilli(pb.SentAtUnixMs)
	}
	return m
}

// MessagesToPB converts a slice of messages.
func MessagesToPB(msgs []chat.Message) []*ChatMessage {
	out := make([]*ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageToPB(m))
	}
	return out
}

// MessagesFromPB converts a slice of wire messages.
func MessagesFromPB(pbs []*ChatMessage) []chat.Message {
	out := make([]chat.Message, 0, len(pbs))
	for _, pb := range pbs {
		out = append(out, MessageFromPB(pb))
	}
	return out
}

// ParticipantToPB converts a chat.Participant to PeerInfo.
func ParticipantToPB(p chat.Participant) *PeerInfo {
	return &PeerInfo{
		UserID:    p.UserID,
		Address:   p.Addr,
		ProcessID: int32(p.ProcessID),
	}
}

// ParticipantFromPB converts PeerInfo to chat.Participant.
func ParticipantFromPB(pb *PeerInfo) chat.Participant {
	if pb == nil {
		return chat.Participant{}
	}
	return chat.Participant{
		UserID:    pb.UserID,
		Addr:      pb.Address,
		ProcessID: int(pb.ProcessID),
	}
}

// ParticipantsToPB converts a slice of participants.
func ParticipantsToPB(ps []chat.Participant) []*PeerInfo {
	out := make([]*PeerInfo, 0, len(ps))
	for _, p := range ps {
		out = append(out, ParticipantToPB(p))
	}
	return out
}

// ParticipantsFromPB converts a slice of PeerInfo.
func ParticipantsFromPB(pbs []*PeerInfo) []chat.Participant {
	out := make([]chat.Participant, 0, len(pbs))
	for _, pb := range pbs {
		out = append(out, ParticipantFromPB(pb))
	}
	return out
}

// EventToPB converts a membership event to its wire form.
func EventToPB(ev chat.Event) *GroupEvent {
	pb := &GroupEvent{}
	switch ev.Kind {
	case chat.EventUserJoined:
		pb.Type = EventType_USER_JOINED
		pb.Peer = ParticipantToPB(ev.Participant)
	case chat.EventUserLeft:
		pb.Type = EventType_USER_LEFT
		pb.Peer = ParticipantToPB(ev.Participant)
	case chat.EventSnapshot:
		pb.Type = EventType_SNAPSHOT
		pb.Peers = ParticipantsToPB(ev.Participants)
	}
	return pb
}

// EventFromPB converts a wire event to chat.Event.
func EventFromPB(pb *GroupEvent) chat.Event {
	ev := chat.Event{}
	switch pb.Type {
	case EventType_USER_JOINED:
		ev.Kind = chat.EventUserJoined
	case EventType_USER_LEFT:
		ev.Kind = chat.EventUserLeft
	case EventType_SNAPSHOT:
		ev.Kind = chat.EventSnapshot
		ev.Participants = ParticipantsFromPB(pb.Peers)
	}
	if pb.Peer != nil {
		ev.Participant = ParticipantFromPB(pb.Peer)
	}
	return ev
}
