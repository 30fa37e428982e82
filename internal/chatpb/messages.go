package chatpb

// Status is the outcome carried by unary discovery responses. Discovery
// failures are reported here rather than as RPC errors.
type Status int32

const (
	Status_OK Status = iota
	Status_NOT_FOUND
	Status_WRONG_PASSWORD
	Status_GROUP_FULL
	Status_ALREADY_EXISTS
	Status_ALREADY_JOINED
	Status_INVALID_ARGUMENT
	Status_UNAVAILABLE
)

func (s Status) String() string {
	switch s {
	case Status_OK:
		return "OK"
	case Status_NOT_FOUND:
		return "NOT_FOUND"
	case Status_WRONG_PASSWORD:
		return "WRONG_PASSWORD"
	case Status_GROUP_FULL:
		return "GROUP_FULL"
	case Status_ALREADY_EXISTS:
		return "ALREADY_EXISTS"
	case Status_ALREADY_JOINED:
		return "ALREADY_JOINED"
	case Status_INVALID_ARGUMENT:
		return "INVALID_ARGUMENT"
	case Status_UNAVAILABLE:
		return "UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}

// EventType tags a GroupEvent.
type EventType int32

const (
	EventType_USER_JOINED EventType = iota
	EventType_USER_LEFT
	EventType_SNAPSHOT
)

type VectorClock struct {
	Clock []int64 `json:"clock"`
}

type ChatMessage struct {
	MessageID    string       `json:"message_id,omitempty"`
	GroupID      string       `json:"group_id"`
	UserID       string       `json:"user_id"`
	ProcessID    int32        `json:"process_id"`
	Text         string       `json:"text"`
	VectorClock  *VectorClock `json:"vector_clock,omitempty"`
	SentAtUnixMs int64        `json:"sent_at_unix_ms,omitempty"`
}

type PeerInfo struct {
	UserID    string `json:"user_id"`
	Address   string `json:"address"`
	ProcessID int32  `json:"process_id"`
}

type CreateGroupRequest struct {
	GroupID  string `json:"group_id"`
	Password string `json:"password,omitempty"`
}

type CreateGroupResponse struct {
	Status       Status `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type ListGroupsResponse struct {
	GroupIDs []string `json:"group_ids"`
}

type EnterGroupRequest struct {
	GroupID     string `json:"group_id"`
	Password    string `json:"password,omitempty"`
	PeerAddress string `json:"peer_address"`
	UserID      string `json:"user_id"`
}

type EnterGroupResponse struct {
	Status       Status         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ProcessID    int32          `json:"process_id"`
	Peers        []*PeerInfo    `json:"peers,omitempty"`
	History      []*ChatMessage `json:"history,omitempty"`
}

type LeaveGroupRequest struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

type LeaveGroupResponse struct {
	Status       Status `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type GetParticipantsRequest struct {
	GroupID string `json:"group_id"`
}

type GetParticipantsResponse struct {
	Status       Status      `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	Peers        []*PeerInfo `json:"peers,omitempty"`
}

type SubscribeRequest struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

type GroupEvent struct {
	Type  EventType   `json:"type"`
	Peer  *PeerInfo   `json:"peer,omitempty"`
	Peers []*PeerInfo `json:"peers,omitempty"`
}

type LogMessageResponse struct {
	Status       Status `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}
