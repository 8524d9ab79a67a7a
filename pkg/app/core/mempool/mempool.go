package mempool

import (
	"encoding/json"
	"sync"
)

// CommandType classifies raw commands by their JSON "type" envelope.
type CommandType int

const (
	CmdUnknown CommandType = iota
	CmdLedger              // fund, approve, transferFrom, transfer, deposit, withdraw
	CmdCreate
	CmdCancel
	CmdContinue
	numCommandTypes
)

var commandTypeNames = [numCommandTypes]string{"Unknown", "Ledger", "Create", "Cancel", "Continue"}

func (c CommandType) String() string {
	if c >= 0 && c < numCommandTypes {
		return commandTypeNames[c]
	}
	return "Unknown"
}

var envelopeTypes = map[string]CommandType{
	"create":       CmdCreate,
	"cancel":       CmdCancel,
	"continue":     CmdContinue,
	"fund":         CmdLedger,
	"approve":      CmdLedger,
	"transferFrom": CmdLedger,
	"transfer":     CmdLedger,
	"deposit":      CmdLedger,
	"withdraw":     CmdLedger,
}

// ClassifyRaw classifies a raw command by parsing its JSON envelope.
//
//	{"type": "create", ...}   -> CmdCreate
//	{"type": "fund", ...}     -> CmdLedger
//
// Non-JSON, malformed or unrecognised commands are CmdUnknown. They are
// still queued so the application can report them in order.
func ClassifyRaw(b []byte) CommandType {
	if len(b) == 0 || b[0] != '{' {
		return CmdUnknown
	}
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &envelope); err != nil {
		return CmdUnknown
	}
	if t, ok := envelopeTypes[envelope.Type]; ok {
		return t
	}
	return CmdUnknown
}

type Command struct {
	Type  CommandType
	Bytes []byte
}

// Mempool is a FIFO of raw commands. Producers may push concurrently; the
// consumer takes commands in admission order, which is the order they are
// applied in.
type Mempool struct {
	mu     sync.Mutex
	queue  []Command
	counts [numCommandTypes]int
}

func NewMempool() *Mempool {
	return &Mempool{}
}

// PushRaw classifies and enqueues a copy of b.
func (m *Mempool) PushRaw(b []byte) CommandType {
	cp := append([]byte(nil), b...)
	t := ClassifyRaw(cp)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, Command{Type: t, Bytes: cp})
	m.counts[t]++
	return t
}

// Select removes and returns up to max commands, oldest first. max <= 0
// takes everything.
func (m *Mempool) Select(max int) []Command {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.queue)
	if max > 0 && max < n {
		n = max
	}
	out := make([]Command, n)
	copy(out, m.queue[:n])
	m.queue = m.queue[n:]
	for _, c := range out {
		m.counts[c.Type]--
	}
	return out
}

// Requeue puts cmds back at the head of the queue, ahead of anything pushed
// since they were selected, keeping their order.
func (m *Mempool) Requeue(cmds []Command) {
	if len(cmds) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q := make([]Command, 0, len(cmds)+len(m.queue))
	q = append(q, cmds...)
	m.queue = append(q, m.queue...)
	for _, c := range cmds {
		m.counts[c.Type]++
	}
}

// Len returns total pending commands.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Pending returns how many queued commands have type t.
func (m *Mempool) Pending(t CommandType) int {
	if t < 0 || t >= numCommandTypes {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[t]
}
