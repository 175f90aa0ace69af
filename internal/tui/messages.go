package tui

import "github.com/antoniostano/aria/internal/assistant"

// replyMsg carries the outcome of a turn run off the update loop.
type replyMsg struct {
	reply assistant.Reply
	err   error
}

// spokenMsg reports a finished speech attempt.
type spokenMsg struct {
	err error
}

// heardMsg carries a phrase from the simulated microphone.
type heardMsg struct {
	text string
}

type resetMsg struct{}
