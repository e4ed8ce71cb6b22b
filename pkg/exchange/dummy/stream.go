package dummy

import (
	"algoexec/pkg/stream"
	"algoexec/pkg/types"
	"sync"
)

type dummyStream struct {
	interval types.Interval

	onTrade func(stream.Stream, types.TradeEvent)
	onKLine func(stream.Stream, types.KLineEvent)
	onBook  func(stream.Stream, types.BookDepthEvent)
	onOrder func(stream.Stream, types.OrderEvent)
	onConn  func(stream.Stream)
	onClose func(stream.Stream)

	doneC    chan struct{}
	isClosed bool
	mu       sync.Mutex
}

func (s *dummyStream) ConnectAndSubscribe(_ map[string]string, _ func(e []byte)) (doneC chan struct{}, stopC chan struct{}, err error) {
	s.doneC = make(chan struct{})
	if s.onConn != nil {
		s.onConn(s)
	}
	return s.doneC, make(chan struct{}), nil
}

func (s *dummyStream) Close() {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return
	}
	s.isClosed = true
	close(s.doneC)
	s.mu.Unlock()

	if s.onClose != nil {
		s.onClose(s)
	}
}

func (s *dummyStream) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isClosed
}
