package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

func TestEtcdKeyLayout(t *testing.T) {
	id := ContainerID("0b0c6c1e-6f41-4c1b-9d1e-1f2a3b4c5d6e")
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"pool marker", poolMarker("pool"), "/pool/.pool"},
		{"container marker", containerMarker("pool", id), "/pool/.containers/" + string(id)},
		{"container prefix", containerPrefix("pool", id), "/pool/" + string(id) + "/"},
		{"object prefix", objectPrefix("pool", id, "kv"), "/pool/" + string(id) + "/kv/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestErrInfo(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"canceled", context.Canceled, -1},
		{"wrapped deadline", fmt.Errorf("put: %w", context.DeadlineExceeded), -2},
		{"etcd error", rpctypes.ErrEmptyKey, int(codes.InvalidArgument)},
		{"grpc status", status.Error(codes.Unavailable, "no leader"), int(codes.Unavailable)},
		{"other", errors.New("not an etcd server"), -4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, text := ErrInfo(tt.err)
			if code != tt.code {
				t.Errorf("ErrInfo() code = %d, want %d", code, tt.code)
			}
			if text == "" {
				t.Error("ErrInfo() returned empty status text")
			}
		})
	}
}

func TestEtcdErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		kind error
		err  error
		want error
	}{
		{"request failure keeps kind", ErrStore, rpctypes.ErrEmptyKey, ErrStore},
		{"unavailable cluster", ErrStore, status.Error(codes.Unavailable, "connection refused"), ErrConnection},
		{"deadline", ErrResource, context.DeadlineExceeded, ErrConnection},
		{"canceled keeps kind", ErrStore, context.Canceled, ErrStore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := etcdError("put", tt.kind, tt.err)
			if !errors.Is(err, tt.want) {
				t.Errorf("etcdError() = %v, want kind %v", err, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("etcdError() = %v does not wrap %v", err, tt.err)
			}
		})
	}
}

func TestEtcdDriverNoEndpoints(t *testing.T) {
	d := NewEtcdDriver(nil, 0, nil)
	if _, err := d.Connect(context.Background(), "pool"); !errors.Is(err, ErrConnection) {
		t.Errorf("Connect() error = %v, want %v", err, ErrConnection)
	}
}

// putRecorder keeps the arguments of every Put.
type putRecorder struct {
	clientv3.KV
	puts [][2]string
}

func (r *putRecorder) Put(_ context.Context, key, val string, _ ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	r.puts = append(r.puts, [2]string{key, val})
	return &clientv3.PutResponse{}, nil
}

func TestEtcdPutOwnsBuffers(t *testing.T) {
	kv := &putRecorder{}
	obj := &etcdObject{kv: kv, mode: OpenReadWrite}

	key := []byte("0000000000000000")
	value := []byte("zzzz")
	if err := obj.Put(context.Background(), key, value); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	// the workload rewrites its key buffer for the next operation
	key[15] = '1'
	value[0] = 'y'

	if len(kv.puts) != 1 {
		t.Fatalf("%d puts sent, want 1", len(kv.puts))
	}
	if got := kv.puts[0]; got[0] != "0000000000000000" || got[1] != "zzzz" {
		t.Errorf("sent put = %q, want the bytes passed to Put", got)
	}

	ro := &etcdObject{kv: kv, mode: OpenReadOnly}
	if err := ro.Put(context.Background(), key, value); !errors.Is(err, ErrStore) {
		t.Errorf("read-only Put() error = %v, want %v", err, ErrStore)
	}
	if len(kv.puts) != 1 {
		t.Errorf("read-only Put reached the client")
	}
}
