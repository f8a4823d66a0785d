package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_LastAndRecent(t *testing.T) {
	r := NewReporter()
	_, ok := r.Last()
	assert.False(t, ok)

	r.Loading(MsgBroadcasting)
	r.Loading(MsgFinalizing)
	r.Success(MsgSent, "https://explore.tempo.xyz/tx/0xabc")

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, MsgSent, last.Message)
	assert.Equal(t, KindSuccess, last.Kind)
	assert.True(t, last.Terminal())
	assert.Equal(t, "https://explore.tempo.xyz/tx/0xabc", last.Link)

	recent := r.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, MsgFinalizing, recent[1].Message)
	assert.False(t, recent[1].Terminal())
}

func TestReporter_ErrorDetail(t *testing.T) {
	r := NewReporter()
	r.Error(MsgTxFailed, errors.New("receipt timeout"))

	last, _ := r.Last()
	assert.Equal(t, KindError, last.Kind)
	assert.Equal(t, "receipt timeout", last.Detail)
}

func TestReporter_HistoryBounded(t *testing.T) {
	r := NewReporter()
	for i := 0; i < historyLimit+10; i++ {
		r.Loading(MsgFinalizing)
	}
	assert.Len(t, r.Recent(0), historyLimit)
}

func TestReporter_SubscribeNonBlocking(t *testing.T) {
	r := NewReporter()
	ch, stop := r.Subscribe(1)

	r.Loading(MsgBroadcasting)
	r.Loading(MsgFinalizing) // dropped, buffer full

	e := <-ch
	assert.Equal(t, MsgBroadcasting, e.Message)

	stop()
	stop()
	_, open := <-ch
	assert.False(t, open)

	r.Success(MsgSent, "")
}
