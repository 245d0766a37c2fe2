package devfile

import "errors"

// Domain errors for the device-file binding engine.
var (
	// ErrConfiguration is returned when a binding declaration is missing a
	// required attribute. The binding stays inert and never opens a channel.
	ErrConfiguration = errors.New("devfile: invalid binding configuration")

	// ErrMissingID is returned when a declaration has no id attribute.
	ErrMissingID = errors.New("devfile: id attribute is required")

	// ErrMissingLocation is returned when a declaration has no location attribute.
	ErrMissingLocation = errors.New("devfile: location attribute is required")

	// ErrInvalidChannelsPerElement is reported as a warning when
	// channels-per-element is not a positive integer. The default is kept.
	ErrInvalidChannelsPerElement = errors.New("devfile: channels-per-element must be a positive integer")

	// ErrAmbiguousColorChannels is reported as a warning when a colors-channel
	// string mixes indexed and bare entries.
	ErrAmbiguousColorChannels = errors.New("devfile: colors-channel mixes indexed and bare entries")

	// ErrSharedDevice is reported as a warning when a single-channel binding
	// is associated with more than one element.
	ErrSharedDevice = errors.New("devfile: single-channel device shared by several elements")

	// ErrChannelIO is returned when reading from or writing to a device channel fails.
	ErrChannelIO = errors.New("devfile: device channel I/O failed")

	// ErrAlreadyReady is returned when Ready is called more than once.
	ErrAlreadyReady = errors.New("devfile: binding already initialised")

	// ErrUnknownTag is returned when no constructor is registered for a tag.
	ErrUnknownTag = errors.New("devfile: unknown binding tag")

	// ErrDuplicateBinding is returned when two declarations share an id.
	ErrDuplicateBinding = errors.New("devfile: duplicate binding id")
)
