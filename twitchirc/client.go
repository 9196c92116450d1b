// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package twitchirc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/lrstanley/twitchirc/dispatch"
	"github.com/lrstanley/twitchirc/internal/ctxgroup"
	"github.com/lrstanley/twitchirc/ircparse"
	"github.com/lrstanley/twitchirc/ratelimit"
	"github.com/lrstanley/twitchirc/sendqueue"
)

// Config contains everything Service needs that isn't supplied by one
// of the external collaborator interfaces.
type Config struct {
	// ServerURL is the websocket endpoint passed to Transport.Connect.
	ServerURL string
	// Logger receives boundary-level diagnostics (invalid lines,
	// transport send failures). A nil Logger discards them.
	Logger *log.Logger
}

// ErrInvalidConfig is returned by New when Config fails validation.
type ErrInvalidConfig struct {
	Conf Config
	err  error
}

func (e *ErrInvalidConfig) Error() string { return "invalid configuration: " + e.err.Error() }
func (e *ErrInvalidConfig) Unwrap() error { return e.err }

func (c *Config) validate() error {
	if c.ServerURL == "" {
		return &ErrInvalidConfig{Conf: *c, err: errors.New("empty server url")}
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard, "", 0)
	}
	return nil
}

// ErrAuth wraps a failure from Auth.RefreshTokens; Start aborts without
// launching anything when it occurs.
type ErrAuth struct{ err error }

func (e *ErrAuth) Error() string { return "auth: " + e.err.Error() }
func (e *ErrAuth) Unwrap() error { return e.err }

// Service wires a Transport, Auth and ChannelRegistry to the line
// parser, command dispatcher, send queue and rate-limit scheduler, and
// owns their combined lifecycle.
type Service struct {
	Config Config

	transport Transport
	auth      Auth
	channels  ChannelRegistry

	caller *dispatch.Caller
	queue  *sendqueue.Queue

	mu         sync.Mutex
	schedGroup *ctxgroup.Group
}

// New validates config and returns a Service wired to the given
// collaborators. It performs no I/O; call Start to connect.
func New(config Config, transport Transport, auth Auth, channels ChannelRegistry) (*Service, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &Service{
		Config:    config,
		transport: transport,
		auth:      auth,
		channels:  channels,
		caller:    dispatch.NewCaller(),
		queue:     sendqueue.New(),
	}, nil
}

// Start validates/refreshes credentials, wires transport callbacks, and
// connects. It blocks until ctx is canceled or the transport reports
// disconnection, then tears down any running scheduler before
// returning. A non-nil error other than ctx.Err() means the handshake
// never completed.
func (s *Service) Start(ctx context.Context) error {
	if !s.auth.HasTokens() || !s.auth.TokenIsValid() {
		if err := s.auth.RefreshTokens(ctx); err != nil {
			return &ErrAuth{err: err}
		}
	}

	disconnected := make(chan struct{}, 1)

	s.transport.OnConnect(func() { s.handleConnected(ctx) })
	s.transport.OnDisconnect(func() {
		s.handleDisconnected()
		select {
		case disconnected <- struct{}{}:
		default:
		}
	})
	s.transport.OnMessage(func(frame string) { s.pump(frame) })

	if err := s.transport.Connect(ctx, s.Config.ServerURL); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	select {
	case <-ctx.Done():
		_ = s.transport.Disconnect(context.Background(), "shutdown")
		s.handleDisconnected()
		return ctx.Err()
	case <-disconnected:
		return nil
	}
}

// Stop disconnects the transport and cancels any running scheduler.
func (s *Service) Stop(ctx context.Context) error {
	s.handleDisconnected()
	return s.transport.Disconnect(ctx, "stop")
}

// SendMessage enqueues a chat message for channel, to be drained by the
// rate-limit scheduler once it is running. Messages enqueued before
// end-of-MOTD sit in the queue until the scheduler starts.
func (s *Service) SendMessage(channel, text string) {
	s.queue.Enqueue(sendqueue.OutboundMessage{
		ChannelID: channel,
		WireLine:  privmsgLine(channel, text),
	})
}

// OnLogin registers h to run once the handshake completes.
func (s *Service) OnLogin(h func()) string {
	return s.caller.On(dispatch.KindLogin, func(dispatch.Event) { h() })
}

// OnJoinChannel registers h to run whenever the account joins a channel.
func (s *Service) OnJoinChannel(h func(channel string)) string {
	return s.caller.On(dispatch.KindJoinChannel, func(e dispatch.Event) { h(e.Channel) })
}

// OnLeaveChannel registers h to run whenever the account leaves a channel.
func (s *Service) OnLeaveChannel(h func(channel string)) string {
	return s.caller.On(dispatch.KindLeaveChannel, func(e dispatch.Event) { h(e.Channel) })
}

// OnRoomStateChanged registers h to run on ROOMSTATE/USERSTATE/GLOBALUSERSTATE.
func (s *Service) OnRoomStateChanged(h func(channel string, tags ircparse.Tags)) string {
	return s.caller.On(dispatch.KindRoomStateChanged, func(e dispatch.Event) { h(e.Channel, e.Tags) })
}

// ChatMessage is the payload delivered to OnMessageReceived subscribers.
type ChatMessage struct {
	Channel string
	Prefix  string
	Tags    ircparse.Tags
	Text    string
}

// OnMessageReceived registers h to run on PRIVMSG/USERNOTICE.
func (s *Service) OnMessageReceived(h func(ChatMessage)) string {
	return s.caller.On(dispatch.KindMessageReceived, func(e dispatch.Event) {
		h(ChatMessage{Channel: e.Channel, Prefix: e.Prefix, Tags: e.Tags, Text: e.Trailing})
	})
}

// Off removes a subscription previously returned by one of the On*
// methods.
func (s *Service) Off(id string) bool { return s.caller.Off(id) }

func (s *Service) handleConnected(ctx context.Context) {
	s.channels.OnChannelsUpdated(func(enabled, disabled []string) {
		for _, ch := range enabled {
			s.transport.Send(joinLine(ch))
		}
		for _, ch := range disabled {
			s.transport.Send(partLine(ch))
		}
	})
	s.auth.OnCredentialsChanged(func() {
		s.Config.Logger.Printf("twitchirc: credentials changed; reconnect required to re-authenticate")
	})

	s.transport.Send(capRequest)
	s.transport.Send(passLine(s.auth.AccessToken()))
	s.transport.Send(nickLine(s.auth.LoggedInUser()))
}

func (s *Service) handleDisconnected() {
	s.mu.Lock()
	group := s.schedGroup
	s.schedGroup = nil
	s.mu.Unlock()

	if group != nil {
		group.Cancel()
		group.Wait()
	}
}

// pump splits frame on CR/LF, discards empty segments, and routes each
// remaining line through the parser and dispatcher.
func (s *Service) pump(frame string) {
	start := 0
	for i := 0; i <= len(frame); i++ {
		if i == len(frame) || frame[i] == '\r' || frame[i] == '\n' {
			if i > start {
				s.pumpLine(frame[start:i])
			}
			start = i + 1
		}
	}
}

func (s *Service) pumpLine(raw string) {
	line, err := ircparse.ParseLine(raw)
	if err != nil {
		s.Config.Logger.Printf("twitchirc: invalid line %q: %v", raw, err)
		return
	}

	for _, action := range dispatch.Route(line, s.caller) {
		switch action.Kind {
		case dispatch.ActionSendLine:
			s.transport.Send(action.Line)
		case dispatch.ActionJoinActiveLogins:
			for _, name := range s.channels.GetAllActiveLoginNames() {
				s.transport.Send(joinLine(name))
			}
		case dispatch.ActionStartScheduler:
			s.startScheduler()
		}
	}
}

// startScheduler tears down any previously running scheduler (there
// should not be one, but a reconnect without an intervening disconnect
// callback is possible) and launches a fresh one bound to the queue.
// The scheduler's goroutine runs inside its own ctxgroup so a reconnect
// can cancel and wait for it to fully exit before starting the next one,
// rather than risking two schedulers draining the queue concurrently.
func (s *Service) startScheduler() {
	s.mu.Lock()
	prev := s.schedGroup
	s.mu.Unlock()
	if prev != nil {
		prev.Cancel()
		prev.Wait()
	}

	group, ctx := ctxgroup.New(context.Background())

	classify := func(channel string) ratelimit.Class {
		if s.channels.IsModerator(channel) {
			return ratelimit.Relaxed
		}
		return ratelimit.Normal
	}

	sched := ratelimit.New(ratelimit.DefaultConfig(), s.queue, classify, schedulerSender{s.transport}, s.Config.Logger)
	group.Go(func() error { return sched.Run(ctx) })

	s.mu.Lock()
	s.schedGroup = group
	s.mu.Unlock()
}

// schedulerSender adapts Transport to ratelimit.Sender.
type schedulerSender struct{ t Transport }

func (s schedulerSender) SendInstant(ctx context.Context, line string) error {
	return s.t.SendInstant(ctx, line)
}
