package actor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyedSender_routes_by_client(t *testing.T) {
	k := NewKeyedSender[string]()
	a := NewRecordingSender[string]()
	b := NewRecordingSender[string]()

	require.Equal(t, 0, k.Add(a))
	require.Equal(t, 1, k.Add(b))

	require.NoError(t, k.Send(t.Context(), ClientMessage[string]{Client: 1, Msg: "to b"}))
	require.NoError(t, k.Send(t.Context(), ClientMessage[string]{Client: 0, Msg: "to a"}))

	require.Equal(t, []string{"to a"}, a.Messages())
	require.Equal(t, []string{"to b"}, b.Messages())
}

func TestKeyedSender_unknown_and_removed_clients(t *testing.T) {
	k := NewKeyedSender[int]()
	a := NewRecordingSender[int]()
	id := k.Add(a)

	require.NoError(t, k.Send(t.Context(), ClientMessage[int]{Client: 42, Msg: 1}))
	require.NoError(t, k.Send(t.Context(), ClientMessage[int]{Client: -1, Msg: 1}))

	k.Remove(id)
	require.Equal(t, 1, a.Closed())
	require.NoError(t, k.Send(t.Context(), ClientMessage[int]{Client: id, Msg: 2}))
	require.Empty(t, a.Messages())

	b := NewRecordingSender[int]()
	require.Equal(t, 1, k.Add(b), "ids are never reused")
	require.Equal(t, 2, k.Len())
	require.Equal(t, 1, k.Connected())
}

func TestKeyedSender_dropped_peer_is_not_an_error(t *testing.T) {
	k := NewKeyedSender[int]()
	tx, rx := NewChannel[int](1)
	id := k.Add(tx)
	rx.Close()

	require.NoError(t, k.Send(t.Context(), ClientMessage[int]{Client: id, Msg: 1}))
}

func TestKeyedSender_last_handle_closes_peers(t *testing.T) {
	k := NewKeyedSender[int]()
	a := NewRecordingSender[int]()
	k.Add(a)

	c := k.Clone()
	k.Close()
	require.Equal(t, 0, a.Closed())

	require.NoError(t, c.Send(t.Context(), ClientMessage[int]{Client: 0, Msg: 5}))
	c.Close()
	require.Equal(t, 1, a.Closed())
	require.Equal(t, []int{5}, a.Messages())

	dead := k.Clone()
	dead.Close()
	require.Equal(t, 1, a.Closed())
}
