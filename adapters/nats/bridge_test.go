package nats

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/tedge-go/core/actor"
)

type measurement struct {
	Device string  `json:"device"`
	Value  float64 `json:"value"`
}

type upperServer struct{}

func (upperServer) Name() string                                { return "upper" }
func (upperServer) Handle(_ context.Context, s string) string { return strings.ToUpper(s) }

func noConnection() (*natsgo.Conn, closeFunc, error) {
	return nil, func() {}, nil
}

func TestNewPublisher_requires_subject(t *testing.T) {
	_, err := NewPublisher(PublisherConfig[measurement]{Connect: noConnection})
	require.ErrorIs(t, err, ErrNoSubject)
}

func TestNewPublisher_connect_error(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewPublisher(PublisherConfig[measurement]{
		Subject: "m",
		Connect: func() (*natsgo.Conn, closeFunc, error) { return nil, nil, boom },
	})
	require.ErrorIs(t, err, boom)
}

func TestSubscriberBuilder_requires_sink(t *testing.T) {
	b := NewSubscriberBuilder[measurement](SubscriberConfig{Subject: "m", Connect: noConnection})
	_, err := b.TryBuild()
	require.ErrorIs(t, err, actor.ErrMissingPeer)
}

func TestSubscriberBuilder_requires_subject(t *testing.T) {
	b := NewSubscriberBuilder[measurement](SubscriberConfig{Connect: noConnection})
	actor.ConnectSender[measurement](b, actor.NewRecordingSender[measurement]())

	var le *actor.LinkError
	_, err := b.TryBuild()
	require.ErrorAs(t, err, &le)
	require.Equal(t, "subscriber subject", le.Role)
}

func TestResponderBuilder_excess_client(t *testing.T) {
	srv := actor.NewServerActorBuilder[string, string](upperServer{}, actor.Options{})
	srv.SingleConsumer("nats responder")
	_, err := actor.NewClientMessageBox[string, string](srv)
	require.NoError(t, err)

	b := NewResponderBuilder[string, string](ResponderConfig{Subject: "upper", Connect: noConnection}, srv)
	_, err = b.TryBuild()
	require.ErrorIs(t, err, actor.ErrExcessPeer)
}

func TestNats_Bridge(t *testing.T) {
	connect := ReuseConnection(NewTestContainer(t))

	t.Run("publish & subscribe", func(t *testing.T) {
		rt := actor.NewRuntime(actor.RuntimeOptions{Context: t.Context()})

		sub := NewSubscriberBuilder[measurement](SubscriberConfig{Connect: connect, Subject: "tedge.m.>"})
		got, measurements := actor.NewChannel[measurement](8)
		actor.ConnectSender[measurement](sub, got)
		require.NoError(t, rt.SpawnBuilder(sub))

		pub, err := NewPublisher(PublisherConfig[measurement]{
			Connect:    connect,
			SubjectFor: func(m measurement) string { return "tedge.m." + m.Device },
		})
		require.NoError(t, err)

		// the subscription is set up asynchronously by the actor
		require.Eventually(t, func() bool {
			_ = pub.Send(t.Context(), measurement{Device: "probe", Value: -1})
			ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
			defer cancel()
			_, ok := measurements.Recv(ctx)
			return ok
		}, 5*time.Second, 10*time.Millisecond)

		require.NoError(t, pub.Send(t.Context(), measurement{Device: "temp", Value: 21.5}))
		var m measurement
		for m.Device != "temp" {
			var ok bool
			m, ok = measurements.Recv(t.Context())
			require.True(t, ok)
		}
		require.Equal(t, measurement{Device: "temp", Value: 21.5}, m)

		pub.Close()
		require.ErrorIs(t, pub.Send(t.Context(), m), actor.ErrSendFailed)

		require.NoError(t, rt.Shutdown(t.Context()))
		for {
			if _, ok := measurements.Recv(t.Context()); !ok {
				break
			}
		}
		require.True(t, measurements.Closed(), "the sink closes with the subscriber")
	})

	t.Run("stream publisher", func(t *testing.T) {
		pub, err := NewStreamPublisher(t.Context(), StreamConfig[measurement]{
			PublisherConfig: PublisherConfig[measurement]{Connect: connect, Subject: "tedge.stream.m"},
			Stream:          "MEASUREMENTS",
		})
		require.NoError(t, err)
		defer pub.Close()

		for i := 0; i < 3; i++ {
			require.NoError(t, pub.Send(t.Context(), measurement{Device: "temp", Value: float64(i)}))
		}

		nc, release, err := connect()
		require.NoError(t, err)
		defer release()
		js, err := jetstream.New(nc)
		require.NoError(t, err)
		stream, err := js.Stream(t.Context(), "MEASUREMENTS")
		require.NoError(t, err)
		info, err := stream.Info(t.Context())
		require.NoError(t, err)
		require.EqualValues(t, 3, info.State.Msgs)
	})

	t.Run("request & reply", func(t *testing.T) {
		rt := actor.NewRuntime(actor.RuntimeOptions{Context: t.Context()})

		srv := actor.NewServerActorBuilder[string, string](upperServer{}, actor.Options{})
		resp := NewResponderBuilder[string, string](ResponderConfig{Connect: connect, Subject: "tedge.upper"}, srv)
		require.NoError(t, rt.SpawnBuilder(srv))
		require.NoError(t, rt.SpawnBuilder(resp))

		nc, release, err := connect()
		require.NoError(t, err)
		defer release()

		var res string
		require.Eventually(t, func() bool {
			ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
			defer cancel()
			res, err = Request[string, string](ctx, nc, "tedge.upper", "hello")
			return err == nil
		}, 5*time.Second, 10*time.Millisecond)
		require.Equal(t, "HELLO", res)

		_, err = Request[int, string](t.Context(), nc, "tedge.upper", 42)
		var re *RemoteError
		require.ErrorAs(t, err, &re)
		require.Contains(t, re.Msg, "decode request")

		require.NoError(t, rt.Shutdown(t.Context()))
	})
}
