package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/namespace"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

// Key layout of the etcd backend:
//
//	/<pool>/.pool                   pool marker
//	/<pool>/.containers/<id>        container marker
//	/<pool>/<id>/<oid>/<key>        object data
func poolMarker(pool string) string {
	return path.Join("/", pool, ".pool")
}

func containerMarker(pool string, id ContainerID) string {
	return path.Join("/", pool, ".containers", string(id))
}

func containerPrefix(pool string, id ContainerID) string {
	return path.Join("/", pool, string(id)) + "/"
}

func objectPrefix(pool string, id ContainerID, oid ObjectID) string {
	return containerPrefix(pool, id) + string(oid) + "/"
}

// EtcdDriver maps pools, containers and objects onto key prefixes of an etcd v3 cluster.
type EtcdDriver struct {
	endpoints   []string
	dialTimeout time.Duration
	logger      *zap.Logger
}

func NewEtcdDriver(endpoints []string, dialTimeout time.Duration, logger *zap.Logger) *EtcdDriver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EtcdDriver{
		endpoints:   endpoints,
		dialTimeout: dialTimeout,
		logger:      logger,
	}
}

func (d *EtcdDriver) Name() string {
	return "etcd"
}

func (d *EtcdDriver) newClient(ctx context.Context) (*clientv3.Client, error) {
	if len(d.endpoints) == 0 {
		return nil, opError("connect", ErrConnection, errors.New("no endpoints configured"))
	}
	// the client must outlive a cancelled run so teardown can still reach the cluster
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   d.endpoints,
		DialTimeout: d.dialTimeout,
		Logger:      d.logger,
		Context:     context.WithoutCancel(ctx),
	})
	if err != nil {
		return nil, etcdError("connect", ErrConnection, err)
	}

	// clientv3.New does not wait for the cluster, ask an endpoint for its status
	statusCtx, cancel := context.WithTimeout(ctx, d.dialTimeout)
	defer cancel()
	if _, err := cli.Status(statusCtx, d.endpoints[0]); err != nil {
		cli.Close()
		return nil, etcdError("connect", ErrConnection, err)
	}
	return cli, nil
}

// CreatePool writes the pool marker so that Connect accepts poolID.
func (d *EtcdDriver) CreatePool(ctx context.Context, poolID string) error {
	cli, err := d.newClient(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()
	if _, err := cli.Put(ctx, poolMarker(poolID), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return etcdError("create pool", ErrResource, err)
	}
	return nil
}

// DestroyPool deletes the pool marker and every container left in the pool.
func (d *EtcdDriver) DestroyPool(ctx context.Context, poolID string) error {
	cli, err := d.newClient(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()
	if _, err := cli.Delete(ctx, path.Join("/", poolID)+"/", clientv3.WithPrefix()); err != nil {
		return etcdError("destroy pool", ErrResource, err)
	}
	return nil
}

func (d *EtcdDriver) Connect(ctx context.Context, poolID string) (Conn, error) {
	cli, err := d.newClient(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := cli.Get(ctx, poolMarker(poolID), clientv3.WithCountOnly())
	if err != nil {
		cli.Close()
		return nil, etcdError("connect", ErrConnection, err)
	}
	if resp.Count == 0 {
		cli.Close()
		return nil, opError("connect", ErrConnection, fmt.Errorf("unknown pool %q", poolID))
	}
	return &etcdConn{cli: cli, pool: poolID}, nil
}

type etcdConn struct {
	cli    *clientv3.Client
	pool   string
	closed bool
}

func (c *etcdConn) CreateContainer(ctx context.Context) (ContainerID, error) {
	id := ContainerID(uuid.NewString())
	marker := containerMarker(c.pool, id)
	resp, err := c.cli.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(marker), "=", 0)).
		Then(clientv3.OpPut(marker, time.Now().UTC().Format(time.RFC3339))).
		Commit()
	if err != nil {
		return "", etcdError("create container", ErrResource, err)
	}
	if !resp.Succeeded {
		return "", opError("create container", ErrResource, fmt.Errorf("container %s already exists", id))
	}
	return id, nil
}

func (c *etcdConn) OpenContainer(ctx context.Context, id ContainerID, mode OpenMode) (Container, error) {
	resp, err := c.cli.Get(ctx, containerMarker(c.pool, id), clientv3.WithCountOnly())
	if err != nil {
		return nil, etcdError("open container", ErrResource, err)
	}
	if resp.Count == 0 {
		return nil, opError("open container", ErrResource, fmt.Errorf("container %s does not exist", id))
	}
	return &etcdContainer{conn: c, id: id, mode: mode}, nil
}

func (c *etcdConn) DestroyContainer(ctx context.Context, id ContainerID) error {
	marker := containerMarker(c.pool, id)
	resp, err := c.cli.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(marker), ">", 0)).
		Then(
			clientv3.OpDelete(containerPrefix(c.pool, id), clientv3.WithPrefix()),
			clientv3.OpDelete(marker),
		).
		Commit()
	if err != nil {
		return etcdError("destroy container", ErrResource, err)
	}
	if !resp.Succeeded {
		return opError("destroy container", ErrResource, fmt.Errorf("container %s does not exist", id))
	}
	return nil
}

func (c *etcdConn) Close() error {
	if c.closed {
		return opError("close connection", ErrResource, errClosed)
	}
	c.closed = true
	if err := c.cli.Close(); err != nil {
		return etcdError("close connection", ErrResource, err)
	}
	return nil
}

type etcdContainer struct {
	conn   *etcdConn
	id     ContainerID
	mode   OpenMode
	closed bool
}

func (c *etcdContainer) ID() ContainerID {
	return c.id
}

func (c *etcdContainer) OpenObject(ctx context.Context, oid ObjectID, mode OpenMode) (Object, error) {
	if c.closed {
		return nil, opError("open object", ErrResource, errClosed)
	}
	if c.mode == OpenReadOnly {
		mode = OpenReadOnly
	}
	kv := namespace.NewKV(c.conn.cli.KV, objectPrefix(c.conn.pool, c.id, oid))
	return &etcdObject{kv: kv, mode: mode}, nil
}

func (c *etcdContainer) Close() error {
	if c.closed {
		return opError("close container", ErrResource, errClosed)
	}
	c.closed = true
	return nil
}

type etcdObject struct {
	kv     clientv3.KV
	mode   OpenMode
	closed bool
}

func (o *etcdObject) check(op string, write bool) error {
	if o.closed {
		return opError(op, ErrStore, errClosed)
	}
	if write && o.mode == OpenReadOnly {
		return opError(op, ErrStore, errReadOnly)
	}
	return nil
}

func (o *etcdObject) Put(ctx context.Context, key, value []byte) error {
	if err := o.check("put", true); err != nil {
		return err
	}
	// The client takes strings, so each Put copies key and value. The request
	// must own its bytes because callers reuse their buffers; the memory
	// backend pays the same copy when it stores the value.
	if _, err := o.kv.Put(ctx, string(key), string(value)); err != nil {
		return etcdError("put", ErrStore, err)
	}
	return nil
}

func (o *etcdObject) Get(ctx context.Context, key, buf []byte) error {
	if err := o.check("get", false); err != nil {
		return err
	}
	resp, err := o.kv.Get(ctx, string(key))
	if err != nil {
		return etcdError("get", ErrStore, err)
	}
	if len(resp.Kvs) == 0 {
		return opError("get", ErrNotFound, fmt.Errorf("key %q", key))
	}
	value := resp.Kvs[0].Value
	if len(value) != len(buf) {
		return opError("get", ErrSizeMismatch, fmt.Errorf("stored %d bytes, expected %d", len(value), len(buf)))
	}
	copy(buf, value)
	return nil
}

func (o *etcdObject) List(ctx context.Context, anchor *Anchor, page *Page) error {
	if err := o.check("list", false); err != nil {
		return err
	}
	if anchor.EOF() {
		return nil
	}
	page.truncate()

	// the smallest key after the anchor
	start := string(append(append([]byte(nil), anchor.last...), 0))
	resp, err := o.kv.Get(ctx, start,
		clientv3.WithFromKey(),
		clientv3.WithLimit(int64(page.Cap())),
		clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend),
		clientv3.WithKeysOnly(),
	)
	if err != nil {
		return etcdError("list", ErrStore, err)
	}
	for _, kv := range resp.Kvs {
		page.add(kv.Key)
	}
	if n := len(resp.Kvs); n > 0 {
		anchor.advance(resp.Kvs[n-1].Key)
	}
	anchor.eof = !resp.More
	return nil
}

func (o *etcdObject) Remove(ctx context.Context, key []byte) error {
	if err := o.check("remove", true); err != nil {
		return err
	}
	if _, err := o.kv.Delete(ctx, string(key)); err != nil {
		return etcdError("remove", ErrStore, err)
	}
	return nil
}

func (o *etcdObject) Exists(ctx context.Context, key []byte) (bool, error) {
	if err := o.check("exists", false); err != nil {
		return false, err
	}
	resp, err := o.kv.Get(ctx, string(key), clientv3.WithCountOnly())
	if err != nil {
		return false, etcdError("exists", ErrStore, err)
	}
	return resp.Count > 0, nil
}

func (o *etcdObject) Close() error {
	if o.closed {
		return opError("close object", ErrStore, errClosed)
	}
	o.closed = true
	return nil
}

// ErrInfo turns an etcd client error into a status code and text.
// Negative codes are client side conditions, positive ones are gRPC codes.
func ErrInfo(err error) (int, string) {
	var statusCode int
	var statusText string
	var etcdErr rpctypes.EtcdError
	if errors.Is(err, context.Canceled) {
		// ctx is canceled by another routine
		statusCode = -1
		statusText = "Context canceled by another goroutine"
	} else if errors.Is(err, context.DeadlineExceeded) {
		// ctx is attached with a deadline and it exceeded
		statusCode = -2
		statusText = "Request deadline exceeded"
	} else if errors.As(err, &etcdErr) {
		// etcd client rpc error
		statusCode = int(etcdErr.Code())
		statusText = etcdErr.Error()
	} else if ev, ok := status.FromError(err); ok {
		// gRPC status error
		statusCode = int(ev.Code())
		statusText = ev.String()
	} else if clientv3.IsConnCanceled(err) {
		statusCode = -3
		statusText = "gRPC Client connection closed"
	} else {
		// bad cluster endpoints, which are not etcd servers
		statusCode = -4
		statusText = err.Error()
	}
	return statusCode, statusText
}

// etcdError wraps err with its status. Failures that mean the cluster cannot
// be reached are reported as ErrConnection whatever the operation.
func etcdError(op string, kind error, err error) error {
	code, text := ErrInfo(err)
	switch code {
	case -2, -3, -4, int(codes.Unavailable):
		kind = ErrConnection
	}
	return opError(op, kind, fmt.Errorf("status %d (%s): %w", code, text, err))
}
