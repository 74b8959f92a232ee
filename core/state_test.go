package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReceiverTransition(t *testing.T) {
	tests := []struct {
		from    State
		class   string
		want    State
		wantErr bool
	}{
		{from: Idle, class: ClassSendRequest, want: RecvWait},
		{from: Idle, class: ClassNew, want: ErrNet, wantErr: true},
		{from: RecvWait, class: ClassNew, want: ErrNet, wantErr: true},
		{from: RecvWait, class: ClassSendRequest, want: ErrNet, wantErr: true},
		{from: RecvWait, class: ClassEnd, want: SenderEnd},
		{from: RecvWait, class: ClassDone, want: ErrNet, wantErr: true},
		{from: Recv, class: ClassNew, want: Recv},
		{from: Recv, class: ClassOk, want: Recv},
		{from: Recv, class: ClassDone, want: RecvDone},
		{from: Recv, class: ClassStop, want: SenderStop},
		{from: Recv, class: ClassEnd, want: SenderEnd},
		{from: Recv, class: ClassNo, want: ErrNet, wantErr: true},
		{from: Recv, class: ClassScan, want: ErrNet, wantErr: true},
		{from: SenderStop, class: ClassOk, want: Recv},
		{from: SenderStop, class: ClassStop, want: SenderStop},
		{from: ReceiverStop, class: ClassOk, want: ReceiverStop},
		{from: ReceiverStop, class: ClassNew, want: ReceiverStop},
		{from: ReceiverStop, class: ClassStop, want: SenderStop},
		{from: ReceiverStop, class: ClassDone, want: RecvDone},
		{from: RecvDone, class: ClassOk, want: ErrNet, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.class, func(t *testing.T) {
			got, err := receiverTransition(tt.from, tt.class)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnexpectedClass)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSenderTransition(t *testing.T) {
	tests := []struct {
		from    State
		class   string
		want    State
		wantErr bool
	}{
		{from: SendRequest, class: ClassOk, want: Send},
		{from: SendRequest, class: ClassNo, want: SendReject},
		{from: SendRequest, class: ClassNext, want: ErrNet, wantErr: true},
		{from: Send, class: ClassOk, want: Send},
		{from: Send, class: ClassNext, want: Send},
		{from: Send, class: ClassStop, want: ReceiverStop},
		{from: Send, class: ClassEnd, want: ReceiverEnd},
		{from: Send, class: ClassNo, want: ErrNet, wantErr: true},
		{from: ReceiverStop, class: ClassOk, want: Send},
		{from: SenderStop, class: ClassOk, want: SenderStop},
		{from: SenderStop, class: ClassNext, want: SenderStop},
		{from: SenderStop, class: ClassEnd, want: ReceiverEnd},
		{from: Idle, class: ClassOk, want: ErrNet, wantErr: true},
		{from: SendDone, class: ClassOk, want: ErrNet, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.class, func(t *testing.T) {
			got, err := senderTransition(tt.from, tt.class)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnexpectedClass)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateClassification(t *testing.T) {
	for _, s := range []State{ErrFs, ErrNet, SendReject, SendDone, RecvDone, SenderEnd, ReceiverEnd} {
		assert.True(t, s.Terminal(), s.String())
		assert.False(t, s.Active(), s.String())
	}

	for _, s := range []State{SendRequest, Send, RecvWait, Recv, SenderStop, ReceiverStop} {
		assert.True(t, s.Active(), s.String())
		assert.False(t, s.Terminal(), s.String())
	}

	assert.False(t, Idle.Active())
	assert.False(t, Idle.Terminal())
	assert.Equal(t, "unknown", State(99).String())
}
