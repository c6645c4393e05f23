package domain

import "context"

// Database is the external dump/load capability. Dump and Load block until
// the child process has exited.
type Database interface {
	Dump(ctx context.Context, destPath string) error
	Load(ctx context.Context, sourcePath string) error
	GetType() string
	Ping(ctx context.Context) error
}
