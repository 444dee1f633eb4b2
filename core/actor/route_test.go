package actor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type reading struct {
	Device string
	Value  int
}

func TestRouterSender_same_key_same_worker(t *testing.T) {
	workers := map[string]*RecordingSender[reading]{
		"w1": NewRecordingSender[reading](),
		"w2": NewRecordingSender[reading](),
		"w3": NewRecordingSender[reading](),
	}
	peers := make(map[string]Sender[reading], len(workers))
	for name, w := range workers {
		peers[name] = w
	}

	r, err := RouterSender(func(m reading) string { return m.Device }, "seed", peers)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		require.NoError(t, r.Send(t.Context(), reading{Device: fmt.Sprintf("dev-%d", i%10), Value: i}))
	}

	seen := map[string]string{}
	total := 0
	for name, w := range workers {
		last := map[string]int{}
		for _, m := range w.Messages() {
			total++
			if prev, ok := seen[m.Device]; ok {
				require.Equal(t, prev, name, "device %s moved between workers", m.Device)
			}
			seen[m.Device] = name
			if v, ok := last[m.Device]; ok {
				require.Greater(t, m.Value, v, "per-device order")
			}
			last[m.Device] = m.Value
		}
	}
	require.Equal(t, 100, total)
	require.Len(t, seen, 10)

	c := r.Clone()
	r.Close()
	c.Close()
	for _, w := range workers {
		require.Equal(t, 2, w.Closed())
	}
}

func TestRouterSender_no_workers(t *testing.T) {
	_, err := RouterSender(func(s string) string { return s }, "", map[string]Sender[string]{})
	require.ErrorIs(t, err, ErrMissingPeer)
}

func TestRouterSender_worker_gone(t *testing.T) {
	tx, rx := NewChannel[string](1)
	rx.Close()
	r, err := RouterSender(func(s string) string { return s }, "", map[string]Sender[string]{"only": tx})
	require.NoError(t, err)
	require.ErrorIs(t, r.Send(t.Context(), "k"), ErrSendFailed)
}
