// Command peer is a two-party demo: one instance creates a room, the other
// joins it, and once both are present they open a WebRTC data channel
// negotiated through the relay and exchange text.
//
//	go run ./example/peer -room demo -create
//	go run ./example/peer -room demo
package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/LingByte/LingSignal/pkg/client"
	"github.com/LingByte/LingSignal/pkg/constants"
	"github.com/LingByte/LingSignal/pkg/logger"
	iceconfig "github.com/LingByte/LingSignal/pkg/webrtc/config"
)

func main() {
	server := flag.String("server", "ws://localhost:8080/ws", "relay websocket url")
	room := flag.String("room", "demo", "room id")
	create := flag.Bool("create", false, "create the room instead of joining it")
	flag.Parse()

	if err := logger.Init(&logger.LogConfig{Level: "info"}, "production"); err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(ctx, *server, nil, logger.Lg)
	if err != nil {
		log.Fatalf("dial relay: %v", err)
	}
	defer c.Close()
	logger.Info("connected to relay", zap.String("client_id", c.ID()))

	peer, err := client.NewPeer(c, *room, iceconfig.DefaultICEOption().ICEServers(), logger.Lg)
	if err != nil {
		log.Fatalf("new peer: %v", err)
	}
	defer peer.Close()

	channels := make(chan *webrtc.DataChannel, 1)
	peer.PeerConnection().OnDataChannel(func(dc *webrtc.DataChannel) { channels <- dc })

	if *create {
		err = c.CreateRoom(*room)
	} else {
		err = c.JoinRoom(*room)
	}
	if err != nil {
		log.Fatalf("room request: %v", err)
	}

	go func() {
		err := peer.Run(ctx, func(ev *client.Event) {
			switch ev.Type {
			case constants.MessageUserJoined:
				logger.Info("peer joined, offering", zap.String("user_id", ev.UserID))
				dc, err := peer.PeerConnection().CreateDataChannel("chat", nil)
				if err != nil {
					logger.Error("create data channel", zap.Error(err))
					return
				}
				select {
				case channels <- dc:
				default:
				}
				if err := peer.Offer(); err != nil {
					logger.Error("offer", zap.Error(err))
				}
			case constants.MessageUserLeft:
				logger.Info("peer left", zap.String("user_id", ev.UserID))
			case constants.MessageError:
				logger.Error("relay error", zap.String("message", ev.Message))
				stop()
			}
		})
		if err != nil && ctx.Err() == nil {
			logger.Warn("relay connection ended", zap.Error(err))
			stop()
		}
	}()

	select {
	case dc := <-channels:
		chat(ctx, dc, c.ID())
	case <-ctx.Done():
	}
}

// chat prints inbound messages and sends stdin lines once dc opens.
func chat(ctx context.Context, dc *webrtc.DataChannel, self string) {
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		logger.Info("message", zap.String("text", string(msg.Data)))
	})
	dc.OnOpen(func() {
		logger.Info("data channel open, type a line to send")
		_ = dc.SendText("hello from " + self)
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				if err := dc.SendText(scanner.Text()); err != nil {
					logger.Warn("send", zap.Error(err))
					return
				}
			}
		}()
	})
	<-ctx.Done()
}
