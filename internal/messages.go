package internal

import (
	"github.com/harborchat/harbor-client/internal/ledger"
	"github.com/harborchat/harbor-client/internal/notify"
)

// Messages sent into the program from the connection and state layers.

// cacheUpdatedMsg signals that the chat cache changed and visible screens
// should re-render from it.
type cacheUpdatedMsg struct{}

// chatMessageMsg signals a new inbound chat message (already cached).
type chatMessageMsg struct {
	userID string
}

// notificationMsg carries a transient notification for the status line.
type notificationMsg struct {
	n notify.Notification
}

// notificationExpiredMsg clears the status line after its display window.
type notificationExpiredMsg struct {
	seq int
}

// errorRecordedMsg signals that a record was added to the error ledger.
type errorRecordedMsg struct {
	rec ledger.Record
}

// retryDoneMsg reports the outcome of a manual retry from the errors
// screen.
type retryDoneMsg struct {
	errorID string
	err     error
}

// connectedMsg signals a successful connection to the chat server.
type connectedMsg struct{}

// connectionAttemptMsg reports a connect attempt outcome.
type connectionAttemptMsg struct {
	err error
}

// reconnectResultMsg reports a reconnect attempt outcome and its ordinal.
type reconnectResultMsg struct {
	attempt int
	err     error
}

// disconnectMsg signals that the event connection closed.
type disconnectMsg struct{}
