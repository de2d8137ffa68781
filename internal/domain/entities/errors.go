package entities

import "errors"

// ErrSnapshotUnavailable is returned when the registry cannot be read. The
// whole audit aborts; retrying is up to the caller.
var ErrSnapshotUnavailable = errors.New("registry snapshot unavailable")

// ErrPlanNotFound is returned when no stored plan matches the request.
var ErrPlanNotFound = errors.New("plan not found")

// ErrBatchNotFound is returned when no stored applied batch matches the
// request.
var ErrBatchNotFound = errors.New("applied batch not found")
