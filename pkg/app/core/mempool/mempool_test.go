package mempool

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRaw(t *testing.T) {
	tests := []struct {
		name     string
		cmd      string
		expected CommandType
	}{
		{"create", `{"type":"create","orderId":"R1","price":"Buy @ 1.00"}`, CmdCreate},
		{"cancel", `{"type":"cancel","orderId":"R1"}`, CmdCancel},
		{"continue", `{"type":"continue","orderId":"R1","maxMatches":3}`, CmdContinue},
		{"fund", `{"type":"fund","client":"0x01","base":"1"}`, CmdLedger},
		{"transferFrom", `{"type":"transferFrom","client":"0x01"}`, CmdLedger},
		{"unknown type", `{"type":"liquidate"}`, CmdUnknown},
		{"invalid JSON", `{"invalid": "json"`, CmdUnknown},
		{"non-JSON", "UNKNOWN:foo", CmdUnknown},
		{"empty", "", CmdUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyRaw([]byte(tt.cmd)))
		})
	}
}

func TestMempool_AdmissionOrder(t *testing.T) {
	m := NewMempool()
	cmds := []string{
		`{"type":"fund","client":"0x01"}`,
		`{"type":"create","orderId":"R1"}`,
		`{"type":"cancel","orderId":"R1"}`,
		`{"type":"create","orderId":"R2"}`,
	}
	for _, c := range cmds {
		m.PushRaw([]byte(c))
	}
	assert.Equal(t, 2, m.Pending(CmdCreate))

	got := m.Select(3)
	require.Len(t, got, 3)
	for i, c := range got {
		assert.Equal(t, cmds[i], string(c.Bytes))
	}
	assert.Equal(t, CmdCancel, got[2].Type)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, m.Pending(CmdCreate))
	assert.Equal(t, 0, m.Pending(CmdCancel))

	rest := m.Select(0)
	require.Len(t, rest, 1)
	assert.Equal(t, cmds[3], string(rest[0].Bytes))
	assert.Empty(t, m.Select(10))
}

func TestMempool_Requeue(t *testing.T) {
	m := NewMempool()
	m.PushRaw([]byte(`{"type":"create","orderId":"R1"}`))
	m.PushRaw([]byte(`{"type":"cancel","orderId":"R1"}`))
	taken := m.Select(0)
	m.PushRaw([]byte(`{"type":"deposit"}`))

	m.Requeue(taken)
	m.Requeue(nil)
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 1, m.Pending(CmdCreate))
	assert.Equal(t, 1, m.Pending(CmdCancel))

	got := m.Select(0)
	require.Len(t, got, 3)
	assert.Equal(t, CmdCreate, got[0].Type)
	assert.Equal(t, CmdCancel, got[1].Type)
	assert.Equal(t, CmdLedger, got[2].Type)
}

func TestMempool_PushCopies(t *testing.T) {
	m := NewMempool()
	b := []byte(`{"type":"cancel"}`)
	m.PushRaw(b)
	b[2] = 'X'
	assert.Equal(t, `{"type":"cancel"}`, string(m.Select(1)[0].Bytes))
}

func TestMempool_ConcurrentPush(t *testing.T) {
	m := NewMempool()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				m.PushRaw([]byte(fmt.Sprintf(`{"type":"create","orderId":"%d-%d"}`, w, i)))
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 200, m.Len())
	assert.Len(t, m.Select(0), 200)
}
