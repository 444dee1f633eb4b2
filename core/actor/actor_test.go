package actor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimpleActor(t *testing.T) {
	b := NewMessageBoxBuilder[string, string]("upper", 4)
	rec := NewRecordingSender[string]()
	ConnectSender[string](b, rec)
	in := b.Sender()

	box, err := b.TryBuild()
	require.NoError(t, err)

	a := NewSimpleActor(box, func(ctx context.Context, box *MessageBox[string, string], msg string) error {
		return box.Send(ctx, strings.ToUpper(msg))
	}).OnStart(func(ctx context.Context, box *MessageBox[string, string]) error {
		return box.Send(ctx, "ready")
	})
	require.Equal(t, "upper", a.Name())

	require.NoError(t, in.Send(t.Context(), "a"))
	require.NoError(t, in.Send(t.Context(), "b"))
	in.Close()

	require.NoError(t, a.Run(t.Context()))
	require.Equal(t, []string{"ready", "A", "B"}, rec.Messages())
	require.Equal(t, 1, rec.Closed(), "outputs are released when the actor stops")
}

func TestSimpleActor_handler_error_stops_actor(t *testing.T) {
	b := NewMessageBoxBuilder[int, int]("strict", 4)
	in := b.Sender()
	box, err := b.TryBuild()
	require.NoError(t, err)

	boom := errors.New("boom")
	a := NewSimpleActor(box, func(_ context.Context, _ *MessageBox[int, int], msg int) error {
		if msg < 0 {
			return boom
		}
		return nil
	})

	require.NoError(t, in.Send(t.Context(), 1))
	require.NoError(t, in.Send(t.Context(), -1))

	require.ErrorIs(t, a.Run(t.Context()), boom)
	require.ErrorIs(t, in.Send(t.Context(), 2), ErrSendFailed, "the mailbox is dropped")
}

func TestOptions_defaults(t *testing.T) {
	o := Options{}.withDefaults()
	require.Equal(t, 16, o.MailboxSize)
	require.NotNil(t, o.Logger)
	require.NotNil(t, o.Metrics)
	require.Equal(t, 0, o.MaxInFlight)
}

func TestLinkError(t *testing.T) {
	err := ExcessPeer("http proxy")
	require.ErrorIs(t, err, ErrExcessPeer)
	require.NotErrorIs(t, err, ErrMissingPeer)
	require.Equal(t, "too many connections to a peer actor: http proxy", err.Error())
}

func TestRuntimeErrorKind_String(t *testing.T) {
	for k, want := range map[RuntimeErrorKind]string{
		KindActorError:   "actor_error",
		KindChannel:      "channel_error",
		KindCancellation: "cancellation",
		KindPanic:        "panic",
		KindJoin:         "join_error",
		KindLink:         "link_error",
	} {
		require.Equal(t, want, k.String())
	}
}
