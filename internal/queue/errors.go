package queue

import "errors"

// ErrQueueClosed is returned by any operation on a closed queue
var ErrQueueClosed = errors.New("queue is closed")

// ErrItemNotFound is returned when a dead letter id does not exist
var ErrItemNotFound = errors.New("item not found")
