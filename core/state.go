package core

import "errors"

type State int

const (
	ErrFs State = iota - 2
	ErrNet
	Idle

	SendRequest
	Send
	SendReject
	SendDone

	RecvWait
	Recv
	RecvDone

	SenderStop
	ReceiverStop
	SenderEnd
	ReceiverEnd
)

var (
	ErrInvalidState    = errors.New("operation not valid in current state")
	ErrUnexpectedClass = errors.New("unexpected frame class for current state")
)

var stateNames = map[State]string{
	ErrFs:        "err-fs",
	ErrNet:       "err-net",
	Idle:         "idle",
	SendRequest:  "send-request",
	Send:         "send",
	SendReject:   "send-reject",
	SendDone:     "send-done",
	RecvWait:     "recv-wait",
	Recv:         "recv",
	RecvDone:     "recv-done",
	SenderStop:   "sender-stop",
	ReceiverStop: "receiver-stop",
	SenderEnd:    "sender-end",
	ReceiverEnd:  "receiver-end",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal states hold a result the consumer has to acknowledge with Reset.
func (s State) Terminal() bool {
	switch s {
	case ErrFs, ErrNet, SendReject, SendDone, RecvDone, SenderEnd, ReceiverEnd:
		return true
	}
	return false
}

// Active states own a live peer connection.
func (s State) Active() bool {
	switch s {
	case SendRequest, Send, RecvWait, Recv, SenderStop, ReceiverStop:
		return true
	}
	return false
}

// receiverTransition is the receiver's table for frames arriving on the
// active transfer connection. Scan frames never reach it.
func receiverTransition(s State, class string) (State, error) {
	switch s {
	case Idle:
		if class == ClassSendRequest {
			return RecvWait, nil
		}

	case RecvWait:
		// the sender may withdraw the request before it is answered
		if class == ClassEnd {
			return SenderEnd, nil
		}

	case Recv, SenderStop:
		switch class {
		case ClassNew, ClassOk:
			return Recv, nil
		case ClassDone:
			return RecvDone, nil
		case ClassStop:
			return SenderStop, nil
		case ClassEnd:
			return SenderEnd, nil
		}

	case ReceiverStop:
		switch class {
		case ClassNew, ClassOk:
			return ReceiverStop, nil
		case ClassDone:
			return RecvDone, nil
		case ClassStop:
			return SenderStop, nil
		case ClassEnd:
			return SenderEnd, nil
		}
	}

	return ErrNet, ErrUnexpectedClass
}

// senderTransition is the sender's table for frames sent by the receiver.
func senderTransition(s State, class string) (State, error) {
	switch s {
	case SendRequest:
		switch class {
		case ClassOk:
			return Send, nil
		case ClassNo:
			return SendReject, nil
		}

	case Send, ReceiverStop:
		switch class {
		case ClassOk, ClassNext:
			return Send, nil
		case ClassStop:
			return ReceiverStop, nil
		case ClassEnd:
			return ReceiverEnd, nil
		}

	case SenderStop:
		switch class {
		case ClassOk, ClassNext, ClassStop:
			return SenderStop, nil
		case ClassEnd:
			return ReceiverEnd, nil
		}
	}

	return ErrNet, ErrUnexpectedClass
}
