package directory

import "errors"

// ErrNotFound reports that no row satisfies the lookup. Lookups beyond the
// caller's tenant scope return this same error so that out-of-scope and
// nonexistent records are indistinguishable to the caller.
var ErrNotFound = errors.New("directory: not found")
