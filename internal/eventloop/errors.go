package eventloop

import "errors"

// ErrClosed is returned by Do once the loop has stopped.
var ErrClosed = errors.New("eventloop: closed")
