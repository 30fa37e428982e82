package discovery

import (
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"groupchat/internal/chatpb"
)

var (
	ErrNotFound       = errors.New("discovery: group not found")
	ErrWrongPassword  = errors.New("discovery: wrong password")
	ErrGroupFull      = errors.New("discovery: group is full")
	ErrAlreadyExists  = errors.New("discovery: group already exists")
	ErrAlreadyJoined  = errors.New("discovery: user already in group")
	ErrInvalidGroupID = errors.New("discovery: group id must not be empty")
	ErrInvalidUserID  = errors.New("discovery: user id must not be empty")
	ErrClosed         = errors.New("discovery: service closed")
)

var statusByErr = []struct {
	err    error
	status chatpb.Status
	code   codes.Code
}{
	{ErrNotFound, chatpb.Status_NOT_FOUND, codes.NotFound},
	{ErrWrongPassword, chatpb.Status_WRONG_PASSWORD, codes.PermissionDenied},
	{ErrGroupFull, chatpb.Status_GROUP_FULL, codes.ResourceExhausted},
	{ErrAlreadyExists, chatpb.Status_ALREADY_EXISTS, codes.AlreadyExists},
	{ErrAlreadyJoined, chatpb.Status_ALREADY_JOINED, codes.AlreadyExists},
	{ErrInvalidGroupID, chatpb.Status_INVALID_ARGUMENT, codes.InvalidArgument},
	{ErrInvalidUserID, chatpb.Status_INVALID_ARGUMENT, codes.InvalidArgument},
	{ErrClosed, chatpb.Status_UNAVAILABLE, codes.Unavailable},
}

// statusOf maps a service error to the structured status of unary responses.
func statusOf(err error) (chatpb.Status, string) {
	if err == nil {
		return chatpb.Status_OK, ""
	}
	for _, e := range statusByErr {
		if errors.Is(err, e.err) {
			return e.status, err.Error()
		}
	}
	return chatpb.Status_UNAVAILABLE, err.Error()
}

// rpcError maps a service error to a gRPC status error for streaming calls.
func rpcError(err error) error {
	for _, e := range statusByErr {
		if errors.Is(err, e.err) {
			return status.Error(e.code, err.Error())
		}
	}
	return status.Error(codes.Internal, err.Error())
}

// errorOf turns a structured response status back into the sentinel error so
// callers can use errors.Is on the client side.
func errorOf(st chatpb.Status, msg string) error {
	if st == chatpb.Status_OK {
		return nil
	}
	for _, e := range statusByErr {
		if e.status == st {
			if msg == "" || msg == e.err.Error() {
				return e.err
			}
			return &remoteError{sentinel: e.err, msg: msg}
		}
	}
	return errors.New("discovery: " + st.String() + ": " + msg)
}

// errorOfRPC maps a gRPC status error from a stream back to a sentinel.
func errorOfRPC(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, e := range statusByErr {
		if e.code == st.Code() && strings.HasPrefix(st.Message(), e.err.Error()) {
			return &remoteError{sentinel: e.err, msg: st.Message()}
		}
	}
	return err
}

type remoteError struct {
	sentinel error
	msg      string
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.sentinel }
