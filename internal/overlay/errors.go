package overlay

import "errors"

var (
	ErrNotInGroup      = errors.New("overlay: not in a group")
	ErrAlreadyInGroup  = errors.New("overlay: already in a group")
	ErrPeerUnreachable = errors.New("overlay: peer unreachable")
	ErrPeerRejected    = errors.New("overlay: peer rejected message")
	ErrUnknownPeer     = errors.New("overlay: no link to peer")
	ErrInvalidConfig   = errors.New("overlay: invalid config")
)
