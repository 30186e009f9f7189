package store

import "errors"

// ErrNoCachedRecords indicates a device has no rows in the link-record cache.
var ErrNoCachedRecords = errors.New("no cached records for device")
