package ussd

import "strings"

// inputDelimiter joins every input the user has typed so far; the gateway
// accumulates them across round-trips.
const inputDelimiter = "*"

// Request is one stateless gateway callback. Text carries the whole menu
// history for the session.
type Request struct {
	SessionID   string
	ServiceCode string
	Phone       string
	Text        string
}

// Response is the session reply: CON prompts for more input, END closes the
// session.
type Response struct {
	End     bool
	Message string
}

// Render produces the plain-text body the gateway expects.
func (r Response) Render() string {
	if r.End {
		return "END " + r.Message
	}
	return "CON " + r.Message
}

func con(message string) Response { return Response{Message: message} }
func end(message string) Response { return Response{End: true, Message: message} }

// menu identifies the top-level selection; step counts the inputs collected
// after it. Together they name every state of the session automaton, so each
// transition below is a (menu, step) pair instead of re-branching on raw
// array lengths.
type menu int

const (
	menuRoot menu = iota
	menuCreate
	menuBalance
	menuTransfer
	menuHistory
	menuUnknown
)

type session struct {
	menu   menu
	inputs []string // inputs after the menu selection
}

// parseSession reconstructs the session state from accumulated text.
func parseSession(text string) session {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return session{menu: menuRoot}
	}
	parts := strings.Split(trimmed, inputDelimiter)
	s := session{inputs: parts[1:]}
	switch parts[0] {
	case "1":
		s.menu = menuCreate
	case "2":
		s.menu = menuBalance
	case "3":
		s.menu = menuTransfer
	case "4":
		s.menu = menuHistory
	default:
		s.menu = menuUnknown
	}
	return s
}

func (s session) step() int { return len(s.inputs) }

// input returns the i-th collected input, trimmed, or "" when absent.
func (s session) input(i int) string {
	if i >= len(s.inputs) {
		return ""
	}
	return strings.TrimSpace(s.inputs[i])
}
