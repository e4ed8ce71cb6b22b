package bnf

import (
	"algoexec/pkg/types"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	handshakeTimeout = 10 * time.Second
	// binance drops connections after 24h; reset earlier to reconnect on our own terms
	connAutoReset = time.Hour
	maxBackoff    = 30 * time.Second
)

// BnfStream is a single read-only websocket subscription with automatic reconnects.
type BnfStream struct {
	wsUrl  string
	dialer websocket.Dialer
	conn   *websocket.Conn

	// keepalive runs on every tick while connected, e.g. to extend a listen key
	keepalive         func() error
	keepaliveInterval time.Duration

	doneC    chan struct{}
	stopC    chan struct{}
	isClosed bool

	onConn  func(*BnfStream)
	onClose func(*BnfStream)

	mu     sync.Mutex
	logger *log.Entry
}

func NewStream(streamName types.Stream, symbol string, wsUrl string) (*BnfStream, error) {
	if _, err := url.Parse(wsUrl); err != nil {
		return nil, fmt.Errorf("fail to parse ws url: %w", err)
	}
	return &BnfStream{
		wsUrl: wsUrl,
		dialer: websocket.Dialer{
			HandshakeTimeout:  handshakeTimeout,
			EnableCompression: false,
		},
		logger: log.WithFields(log.Fields{
			"exchange": types.ExchangeBnf,
			"stream":   streamName,
			"symbol":   symbol,
		}),
	}, nil
}

func (s *BnfStream) ConnectAndSubscribe(_ map[string]string, onEvent func(e []byte)) (doneC chan struct{}, stopC chan struct{}, err error) {
	conn, err := s.dial()
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	s.conn = conn
	s.doneC = make(chan struct{})
	s.stopC = make(chan struct{})
	s.mu.Unlock()

	if s.onConn != nil {
		s.onConn(s)
	}
	go s.run(onEvent)
	go s.maintain()
	return s.doneC, s.stopC, nil
}

func (s *BnfStream) dial() (*websocket.Conn, error) {
	conn, _, err := s.dialer.Dial(s.wsUrl, nil)
	if err != nil {
		return nil, fmt.Errorf("fail to dial stream: %w", err)
	}
	// binance pings every 3m and expects the payload echoed back
	conn.SetPingHandler(func(msg string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(msg), time.Now().Add(handshakeTimeout)); err != nil {
			s.logger.Warnf("fail to send pong: %v", err)
		}
		return nil
	})
	return conn, nil
}

// run reads until the stream is closed; read errors trigger a reconnect.
func (s *BnfStream) run(onEvent func(e []byte)) {
	for {
		s.mu.Lock()
		conn, closed := s.conn, s.isClosed
		s.mu.Unlock()
		if closed {
			return
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if s.IsClosed() {
				return
			}
			s.logger.Warnf("fail to read stream message (reconnecting): %v", err)
			if !s.reconnect() {
				return
			}
			continue
		}
		onEvent(msg)
	}
}

func (s *BnfStream) reconnect() bool {
	backoff := time.Second
	for {
		select {
		case <-s.stopC:
			s.Close()
			return false
		case <-time.After(backoff):
		}

		conn, err := s.dial()
		if err != nil {
			s.logger.Errorf("fail to reconnect stream (retry in %v): %v", backoff, err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		s.mu.Lock()
		if s.isClosed {
			s.mu.Unlock()
			conn.Close()
			return false
		}
		s.conn = conn
		s.mu.Unlock()
		s.logger.Info("reconnect stream success")
		return true
	}
}

// maintain closes the stream on stop, rotates the connection periodically and runs keepalive.
func (s *BnfStream) maintain() {
	reset := time.NewTicker(connAutoReset)
	defer reset.Stop()

	var keepaliveC <-chan time.Time
	if s.keepalive != nil && s.keepaliveInterval > 0 {
		ticker := time.NewTicker(s.keepaliveInterval)
		defer ticker.Stop()
		keepaliveC = ticker.C
	}

	for {
		select {
		case <-s.stopC:
			s.Close()
			return
		case <-s.doneC:
			return
		case <-reset.C:
			s.logger.Infof("auto-reset after %v", connAutoReset)
			// closing the socket makes run() reconnect
			s.mu.Lock()
			s.conn.Close()
			s.mu.Unlock()
		case <-keepaliveC:
			if err := s.keepalive(); err != nil {
				s.logger.Warnf("fail to keep stream alive: %v", err)
			}
		}
	}
}

// Close is final; the stream cannot be reopened afterward.
func (s *BnfStream) Close() {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return
	}
	s.isClosed = true
	if s.conn != nil {
		s.conn.Close()
	}
	close(s.doneC)
	s.mu.Unlock()

	if s.onClose != nil {
		s.onClose(s)
	}
	s.logger.Info("🔌 stream closed")
}

func (s *BnfStream) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isClosed
}
