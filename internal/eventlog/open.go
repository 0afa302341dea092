package eventlog

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// Open returns the store for backend rooted at path.
// Both backends rely on local file locking, so network filesystems are refused.
func Open(ctx context.Context, backend, path string) (Store, error) {
	if err := validateLocalFilesystem(path); err != nil {
		return nil, err
	}

	switch backend {
	case BackendJSONL, "":
		return NewFileStore(path), nil
	case BackendSQLite:
		return OpenSQLite(ctx, path)
	default:
		return nil, fmt.Errorf("unknown event log backend %q", backend)
	}
}
