package actor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ClientID identifies one peer connected to a server. Ids are assigned in
// connection order and never reused for a different peer.
type ClientID = int

// ClientMessage tags a message with the client it comes from or goes to.
// Seq is chosen by the client and copied into the response, so a client
// can tell the answer to its current request from a late one.
type ClientMessage[M any] struct {
	Client ClientID
	Seq    uint64
	Msg    M
}

// Reply answers req with res, keeping its client and sequence number.
func Reply[Req, Res any](req ClientMessage[Req], res Res) ClientMessage[Res] {
	return ClientMessage[Res]{Client: req.Client, Seq: req.Seq, Msg: res}
}

type keyedTable[M any] struct {
	mu    sync.RWMutex
	peers []Sender[ClientMessage[M]]
	refs  int
}

// KeyedSender routes each ClientMessage to the peer registered under its
// client id, so many clients share one response path. A message for an
// unknown or disconnected client is dropped without error.
type KeyedSender[M any] struct {
	t      *keyedTable[M]
	closed atomic.Bool
}

func NewKeyedSender[M any]() *KeyedSender[M] {
	return &KeyedSender[M]{t: &keyedTable[M]{refs: 1}}
}

// Add registers peer and returns its client id. The KeyedSender takes
// ownership of peer.
func (k *KeyedSender[M]) Add(peer Sender[M]) ClientID {
	return k.AddTagged(MapSender(peer, func(m ClientMessage[M]) M { return m.Msg }))
}

// AddTagged is Add for a peer that wants the whole ClientMessage, e.g. to
// read its Seq.
func (k *KeyedSender[M]) AddTagged(peer Sender[ClientMessage[M]]) ClientID {
	k.t.mu.Lock()
	defer k.t.mu.Unlock()
	k.t.peers = append(k.t.peers, peer)
	return len(k.t.peers) - 1
}

// Remove disconnects a client. Its id stays reserved.
func (k *KeyedSender[M]) Remove(id ClientID) {
	k.t.mu.Lock()
	var peer Sender[ClientMessage[M]]
	if id >= 0 && id < len(k.t.peers) {
		peer = k.t.peers[id]
		k.t.peers[id] = nil
	}
	k.t.mu.Unlock()
	if peer != nil {
		peer.Close()
	}
}

// Len returns the number of ids handed out, disconnected ones included.
func (k *KeyedSender[M]) Len() int {
	k.t.mu.RLock()
	defer k.t.mu.RUnlock()
	return len(k.t.peers)
}

// Connected returns the number of clients still connected.
func (k *KeyedSender[M]) Connected() int {
	k.t.mu.RLock()
	defer k.t.mu.RUnlock()
	n := 0
	for _, p := range k.t.peers {
		if p != nil {
			n++
		}
	}
	return n
}

func (k *KeyedSender[M]) Send(ctx context.Context, msg ClientMessage[M]) error {
	k.t.mu.RLock()
	var peer Sender[ClientMessage[M]]
	if msg.Client >= 0 && msg.Client < len(k.t.peers) {
		peer = k.t.peers[msg.Client]
	}
	k.t.mu.RUnlock()

	if peer == nil {
		return nil
	}
	err := peer.Send(ctx, msg)
	if errors.Is(err, ErrSendFailed) {
		return nil
	}
	return err
}

func (k *KeyedSender[M]) Clone() Sender[ClientMessage[M]] {
	c := &KeyedSender[M]{t: k.t}
	k.t.mu.Lock()
	if k.closed.Load() || k.t.refs == 0 {
		c.closed.Store(true)
	} else {
		k.t.refs++
	}
	k.t.mu.Unlock()
	return c
}

// Close releases this handle; the last one closes every peer.
func (k *KeyedSender[M]) Close() {
	if !k.closed.CompareAndSwap(false, true) {
		return
	}
	k.t.mu.Lock()
	k.t.refs--
	var peers []Sender[ClientMessage[M]]
	if k.t.refs == 0 {
		peers = k.t.peers
		k.t.peers = make([]Sender[ClientMessage[M]], len(peers))
	}
	k.t.mu.Unlock()
	for _, p := range peers {
		if p != nil {
			p.Close()
		}
	}
}
