package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/btree"
	"github.com/google/uuid"
)

const memoryTreeDegree = 32

var (
	errClosed   = errors.New("handle already closed")
	errReadOnly = errors.New("object opened read-only")
)

type memEntry struct {
	key   string
	value []byte
}

func memEntryLess(a, b memEntry) bool {
	return a.key < b.key
}

type memObjectData struct {
	mu        sync.RWMutex
	tree      *btree.BTreeG[memEntry]
	destroyed bool
}

type memContainerData struct {
	objects map[ObjectID]*memObjectData
}

type memPool struct {
	mu         sync.Mutex
	containers map[ContainerID]*memContainerData
}

// MemoryDriver keeps pools in process memory. Keys of an object are held in a
// B-tree so listing returns them in key order and can resume after any key.
type MemoryDriver struct {
	mu    sync.Mutex
	pools map[string]*memPool
}

// NewMemoryDriver creates a driver that knows the given pools. Connecting to
// any other pool fails, like connecting to a pool that was never created.
func NewMemoryDriver(pools ...string) *MemoryDriver {
	d := &MemoryDriver{pools: make(map[string]*memPool)}
	for _, id := range pools {
		d.CreatePool(id)
	}
	return d
}

// CreatePool registers a pool. Creating an existing pool is a no-op.
func (d *MemoryDriver) CreatePool(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pools[id]; !ok {
		d.pools[id] = &memPool{containers: make(map[ContainerID]*memContainerData)}
	}
}

// Containers returns the number of live containers in a pool.
func (d *MemoryDriver) Containers(poolID string) int {
	d.mu.Lock()
	pool, ok := d.pools[poolID]
	d.mu.Unlock()
	if !ok {
		return 0
	}
	pool.mu.Lock()
	defer pool.mu.Unlock()
	return len(pool.containers)
}

func (d *MemoryDriver) Name() string {
	return "memory"
}

func (d *MemoryDriver) Connect(ctx context.Context, poolID string) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, opError("connect", ErrConnection, err)
	}
	d.mu.Lock()
	pool, ok := d.pools[poolID]
	d.mu.Unlock()
	if !ok {
		return nil, opError("connect", ErrConnection, fmt.Errorf("unknown pool %q", poolID))
	}
	return &memConn{pool: pool}, nil
}

type memConn struct {
	pool   *memPool
	closed bool
}

func (c *memConn) CreateContainer(ctx context.Context) (ContainerID, error) {
	if c.closed {
		return "", opError("create container", ErrResource, errClosed)
	}
	id := ContainerID(uuid.NewString())
	c.pool.mu.Lock()
	c.pool.containers[id] = &memContainerData{objects: make(map[ObjectID]*memObjectData)}
	c.pool.mu.Unlock()
	return id, nil
}

func (c *memConn) OpenContainer(ctx context.Context, id ContainerID, mode OpenMode) (Container, error) {
	if c.closed {
		return nil, opError("open container", ErrResource, errClosed)
	}
	c.pool.mu.Lock()
	data, ok := c.pool.containers[id]
	c.pool.mu.Unlock()
	if !ok {
		return nil, opError("open container", ErrResource, fmt.Errorf("container %s does not exist", id))
	}
	return &memContainer{id: id, pool: c.pool, data: data, mode: mode}, nil
}

func (c *memConn) DestroyContainer(ctx context.Context, id ContainerID) error {
	if c.closed {
		return opError("destroy container", ErrResource, errClosed)
	}
	c.pool.mu.Lock()
	defer c.pool.mu.Unlock()
	data, ok := c.pool.containers[id]
	if !ok {
		return opError("destroy container", ErrResource, fmt.Errorf("container %s does not exist", id))
	}
	for _, obj := range data.objects {
		obj.mu.Lock()
		obj.destroyed = true
		obj.tree.Clear(false)
		obj.mu.Unlock()
	}
	delete(c.pool.containers, id)
	return nil
}

func (c *memConn) Close() error {
	if c.closed {
		return opError("close connection", ErrResource, errClosed)
	}
	c.closed = true
	return nil
}

type memContainer struct {
	id     ContainerID
	pool   *memPool
	data   *memContainerData
	mode   OpenMode
	closed bool
}

func (c *memContainer) ID() ContainerID {
	return c.id
}

func (c *memContainer) OpenObject(ctx context.Context, oid ObjectID, mode OpenMode) (Object, error) {
	if c.closed {
		return nil, opError("open object", ErrResource, errClosed)
	}
	if c.mode == OpenReadOnly {
		mode = OpenReadOnly
	}
	c.pool.mu.Lock()
	defer c.pool.mu.Unlock()
	data, ok := c.data.objects[oid]
	if !ok {
		data = &memObjectData{tree: btree.NewG(memoryTreeDegree, memEntryLess)}
		c.data.objects[oid] = data
	}
	return &memObject{data: data, mode: mode}, nil
}

func (c *memContainer) Close() error {
	if c.closed {
		return opError("close container", ErrResource, errClosed)
	}
	c.closed = true
	return nil
}

type memObject struct {
	data   *memObjectData
	mode   OpenMode
	closed bool
}

func (o *memObject) check(op string, write bool) error {
	if o.closed {
		return opError(op, ErrStore, errClosed)
	}
	if write && o.mode == OpenReadOnly {
		return opError(op, ErrStore, errReadOnly)
	}
	return nil
}

func (o *memObject) Put(ctx context.Context, key, value []byte) error {
	if err := o.check("put", true); err != nil {
		return err
	}
	if len(key) == 0 {
		return opError("put", ErrStore, errors.New("empty key"))
	}
	o.data.mu.Lock()
	defer o.data.mu.Unlock()
	if o.data.destroyed {
		return opError("put", ErrStore, errors.New("container destroyed"))
	}
	o.data.tree.ReplaceOrInsert(memEntry{key: string(key), value: append([]byte(nil), value...)})
	return nil
}

func (o *memObject) Get(ctx context.Context, key, buf []byte) error {
	if err := o.check("get", false); err != nil {
		return err
	}
	o.data.mu.RLock()
	defer o.data.mu.RUnlock()
	e, ok := o.data.tree.Get(memEntry{key: string(key)})
	if !ok {
		return opError("get", ErrNotFound, fmt.Errorf("key %q", key))
	}
	if len(e.value) != len(buf) {
		return opError("get", ErrSizeMismatch, fmt.Errorf("stored %d bytes, expected %d", len(e.value), len(buf)))
	}
	copy(buf, e.value)
	return nil
}

func (o *memObject) List(ctx context.Context, anchor *Anchor, page *Page) error {
	if err := o.check("list", false); err != nil {
		return err
	}
	if anchor.EOF() {
		return nil
	}
	page.truncate()

	o.data.mu.RLock()
	defer o.data.mu.RUnlock()

	pivot := memEntry{key: string(anchor.last)}
	var last string
	more := false
	o.data.tree.AscendGreaterOrEqual(pivot, func(e memEntry) bool {
		if anchor.started() && e.key == pivot.key {
			return true
		}
		if page.Full() {
			more = true
			return false
		}
		page.add([]byte(e.key))
		last = e.key
		return true
	})
	if page.Len() > 0 {
		anchor.advance([]byte(last))
	}
	anchor.eof = !more
	return nil
}

func (o *memObject) Remove(ctx context.Context, key []byte) error {
	if err := o.check("remove", true); err != nil {
		return err
	}
	o.data.mu.Lock()
	defer o.data.mu.Unlock()
	o.data.tree.Delete(memEntry{key: string(key)})
	return nil
}

func (o *memObject) Exists(ctx context.Context, key []byte) (bool, error) {
	if err := o.check("exists", false); err != nil {
		return false, err
	}
	o.data.mu.RLock()
	defer o.data.mu.RUnlock()
	return o.data.tree.Has(memEntry{key: string(key)}), nil
}

func (o *memObject) Close() error {
	if o.closed {
		return opError("close object", ErrStore, errClosed)
	}
	o.closed = true
	return nil
}
