package devfile

import (
	"context"

	"github.com/nerrad567/gray-logic-devbind/internal/devchan"
)

// Channel is an open device channel.
type Channel interface {
	// Stream starts delivering read chunks in arrival order. onError is
	// called at most once and ends the stream.
	Stream(onChunk func([]byte), onError func(error))

	// Write queues payload and calls done once it has been written or failed.
	Write(payload []byte, done func(error))

	Close() error
}

// ChannelOpener opens device channels by location.
type ChannelOpener interface {
	OpenChannel(ctx context.Context, location string, mode devchan.Mode) (Channel, error)
}

// OpenerFunc adapts a function to the ChannelOpener interface.
type OpenerFunc func(ctx context.Context, location string, mode devchan.Mode) (Channel, error)

// OpenChannel calls f.
func (f OpenerFunc) OpenChannel(ctx context.Context, location string, mode devchan.Mode) (Channel, error) {
	return f(ctx, location, mode)
}

// PortOpener opens channels through a devchan.Opener.
type PortOpener struct {
	Opener *devchan.Opener
}

// OpenChannel opens a devchan.Port.
func (p PortOpener) OpenChannel(ctx context.Context, location string, mode devchan.Mode) (Channel, error) {
	port, err := p.Opener.Open(ctx, location, mode)
	if err != nil {
		return nil, err
	}
	return port, nil
}
