// Package store is the client side of the key-value store under benchmark.
//
// A Driver connects to a pool. Inside a connection, containers are created and
// destroyed as independent namespaces, and a container holds flat key-value
// objects that serve PUT, GET, LIST, REMOVE and EXISTS. Two drivers exist: an
// in-process ordered store and an etcd v3 cluster.
package store

import "context"

// ContainerID names a container inside a pool.
type ContainerID string

// ObjectID names a flat key-value object inside a container.
type ObjectID string

// OpenMode selects how an object or container is opened.
type OpenMode int

const (
	OpenReadWrite OpenMode = iota
	OpenReadOnly
)

func (m OpenMode) String() string {
	switch m {
	case OpenReadWrite:
		return "rw"
	case OpenReadOnly:
		return "ro"
	default:
		return "unknown"
	}
}

// Driver opens connections to a store backend.
type Driver interface {
	// Connect attaches to the pool identified by poolID.
	Connect(ctx context.Context, poolID string) (Conn, error)
	// Name returns the backend name used in logs.
	Name() string
}

// Conn is an open connection to one pool.
type Conn interface {
	CreateContainer(ctx context.Context) (ContainerID, error)
	OpenContainer(ctx context.Context, id ContainerID, mode OpenMode) (Container, error)
	// DestroyContainer removes the container and everything stored in it.
	DestroyContainer(ctx context.Context, id ContainerID) error
	Close() error
}

// Container is an open container handle.
type Container interface {
	ID() ContainerID
	OpenObject(ctx context.Context, oid ObjectID, mode OpenMode) (Object, error)
	Close() error
}

// Object is an open flat key-value object.
type Object interface {
	// Put stores value under key, overwriting any previous value.
	Put(ctx context.Context, key, value []byte) error
	// Get reads the value of key into buf. The stored value must be exactly
	// len(buf) bytes long, otherwise ErrSizeMismatch is returned.
	Get(ctx context.Context, key, buf []byte) error
	// List fills page with the keys following anchor, at most page.Cap() of them,
	// and advances anchor. A page may come back empty before the anchor reaches EOF.
	List(ctx context.Context, anchor *Anchor, page *Page) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key []byte) error
	Exists(ctx context.Context, key []byte) (bool, error)
	Close() error
}
