package surface

import "errors"

var (
	// ErrSurfaceNotFound indicates no live surface matches the requested id.
	// Callers skip the section rather than failing the export.
	ErrSurfaceNotFound = errors.New("surface not found")

	// ErrSynchronization reports a bitmap that could not be copied into the
	// duplicate. Capture swallows it; the region renders blank.
	ErrSynchronization = errors.New("bitmap synchronization failed")

	// ErrRasterization reports that the renderer produced no bitmap.
	ErrRasterization = errors.New("rasterization failed")

	// ErrAlreadyMounted guards the single-duplicate invariant of a tree.
	ErrAlreadyMounted = errors.New("a duplicate surface is already mounted")
)
