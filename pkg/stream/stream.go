package stream

// Stream is a live market or user data subscription.
type Stream interface {
	ConnectAndSubscribe(params map[string]string, cb func(e []byte)) (doneC chan struct{}, stopC chan struct{}, err error)
	Close()
	IsClosed() bool
}
