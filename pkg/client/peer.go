package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/LingByte/LingSignal/pkg/constants"
)

// Peer drives one pion PeerConnection through the relay. Local ICE
// candidates are trickled to the room; remote candidates that arrive before
// the remote description are held until it is set.
type Peer struct {
	client *Client
	pc     *webrtc.PeerConnection
	roomID string
	logger *zap.Logger

	mu      sync.Mutex
	pending []webrtc.ICECandidateInit
}

// NewPeer creates a PeerConnection that signals through client in roomID.
func NewPeer(client *Client, roomID string, iceServers []webrtc.ICEServer, lg *zap.Logger) (*Peer, error) {
	if lg == nil {
		lg = zap.NewNop()
	}
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	p := &Peer{
		client: client,
		pc:     pc,
		roomID: roomID,
		logger: lg.With(zap.String("client_id", client.ID()), zap.String("room_id", roomID)),
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		if err := client.SendCandidate(roomID, c.ToJSON()); err != nil {
			p.logger.Debug("send candidate failed", zap.Error(err))
		}
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.logger.Info("peer connection state", zap.String("state", state.String()))
	})
	return p, nil
}

// PeerConnection exposes the underlying connection for tracks and data
// channels.
func (p *Peer) PeerConnection() *webrtc.PeerConnection { return p.pc }

// Offer creates a local offer and relays it to the room.
func (p *Peer) Offer() error {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	return p.client.SendOffer(p.roomID, *p.pc.LocalDescription())
}

// HandleEvent applies a relayed offer, answer or candidate. Other event
// types are ignored.
func (p *Peer) HandleEvent(ev *Event) error {
	switch ev.Type {
	case constants.MessageOffer:
		if ev.Offer == nil {
			return fmt.Errorf("offer from %s without description", ev.From)
		}
		if err := p.setRemote(*ev.Offer); err != nil {
			return err
		}
		answer, err := p.pc.CreateAnswer(nil)
		if err != nil {
			return fmt.Errorf("create answer: %w", err)
		}
		if err := p.pc.SetLocalDescription(answer); err != nil {
			return fmt.Errorf("set local description: %w", err)
		}
		return p.client.SendAnswer(p.roomID, *p.pc.LocalDescription())

	case constants.MessageAnswer:
		if ev.Answer == nil {
			return fmt.Errorf("answer from %s without description", ev.From)
		}
		return p.setRemote(*ev.Answer)

	case constants.MessageICECandidate:
		if ev.Candidate == nil {
			return nil
		}
		p.mu.Lock()
		if p.pc.RemoteDescription() == nil {
			p.pending = append(p.pending, *ev.Candidate)
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()
		return p.pc.AddICECandidate(*ev.Candidate)
	}
	return nil
}

func (p *Peer) setRemote(desc webrtc.SessionDescription) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	for _, c := range p.pending {
		if err := p.pc.AddICECandidate(c); err != nil {
			p.logger.Debug("add queued candidate failed", zap.Error(err))
		}
	}
	p.pending = nil
	return nil
}

// Run feeds the client's events to HandleEvent until ctx ends or the
// connection closes. onEvent, if set, sees every event first.
func (p *Peer) Run(ctx context.Context, onEvent func(*Event)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-p.client.Events():
			if !ok {
				return ErrClosed
			}
			if onEvent != nil {
				onEvent(ev)
			}
			if err := p.HandleEvent(ev); err != nil {
				p.logger.Warn("signal handling failed", zap.String("type", ev.Type), zap.Error(err))
			}
		}
	}
}

func (p *Peer) Close() error {
	return p.pc.Close()
}
