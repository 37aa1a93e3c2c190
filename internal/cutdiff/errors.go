package cutdiff

import "errors"

var (
	// ErrNoFrameRate is returned when a clip or track carries no usable
	// frame rate.
	ErrNoFrameRate = errors.New("no frame rate established")

	// ErrFrameRateMismatch is returned when a clip's frame rate differs
	// from its group's.
	ErrFrameRateMismatch = errors.New("frame rate mismatch within shot group")

	// ErrShotMismatch is returned when a grouped clip is linked to a
	// different shot than its group.
	ErrShotMismatch = errors.New("shot differs from the group's shot")

	// ErrOmittedOldClip is returned when an old counterpart is assigned
	// to an entry that already represents an omitted old clip.
	ErrOmittedOldClip = errors.New("cannot set old clip on an omitted entry")

	// ErrOverlappingItems is returned when a stored cut contains items
	// with overlapping record times.
	ErrOverlappingItems = errors.New("overlapping cut items")
)
