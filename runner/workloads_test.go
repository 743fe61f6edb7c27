package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"kvbench/constants"
	"kvbench/generator"
	"kvbench/store"
)

const testPool = "test-pool"

func newTestWorkload(t *testing.T, obj store.Object, keySize, valueSize, numOps, pageSize int) *workload {
	t.Helper()
	gen, err := generator.NewGenerator(keySize, valueSize)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	return &workload{
		obj:      obj,
		gen:      gen,
		numOps:   numOps,
		pageSize: pageSize,
		verify:   true,
		timer:    NewTimer(),
	}
}

func openTestObject(t *testing.T) store.Object {
	t.Helper()
	s, err := store.OpenSession(context.Background(), store.NewMemoryDriver(testPool), testPool, "kv")
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(context.Background()); err != nil {
			t.Errorf("Session.Close() error = %v", err)
		}
	})
	return s.Object()
}

func keyCount(t *testing.T, obj store.Object) int {
	t.Helper()
	anchor := &store.Anchor{}
	page := store.NewPage(64)
	n := 0
	for !anchor.EOF() {
		if err := obj.List(context.Background(), anchor, page); err != nil {
			t.Fatalf("List() error = %v", err)
		}
		n += page.Len()
	}
	return n
}

func TestPutWorkload(t *testing.T) {
	ctx := context.Background()
	obj := openTestObject(t)
	w := newTestWorkload(t, obj, 16, 8, 3, constants.DEFAULT_PAGE_SIZE)

	if err := w.run(ctx, constants.OP_PUT); err != nil {
		t.Fatalf("put error = %v", err)
	}
	if w.timer.Ops() != 3 {
		t.Errorf("measured %d calls, want 3", w.timer.Ops())
	}

	buf := make([]byte, 8)
	for _, key := range []string{"0000000000000000", "0000000000000001", "0000000000000002"} {
		if err := obj.Get(ctx, []byte(key), buf); err != nil {
			t.Fatalf("Get(%q) error = %v", key, err)
		}
		if string(buf) != "zzzzzzzz" {
			t.Errorf("Get(%q) = %q, want %q", key, buf, "zzzzzzzz")
		}
	}
	if n := keyCount(t, obj); n != 3 {
		t.Errorf("object holds %d keys, want 3", n)
	}
}

func TestGetWorkload(t *testing.T) {
	obj := openTestObject(t)
	w := newTestWorkload(t, obj, 16, 8, 3, constants.DEFAULT_PAGE_SIZE)

	if err := w.run(context.Background(), constants.OP_GET); err != nil {
		t.Fatalf("get error = %v", err)
	}
	if w.timer.Ops() != 3 {
		t.Errorf("measured %d calls, want 3", w.timer.Ops())
	}
}

func TestRemoveWorkload(t *testing.T) {
	obj := openTestObject(t)
	w := newTestWorkload(t, obj, 16, 8, 3, constants.DEFAULT_PAGE_SIZE)

	if err := w.run(context.Background(), constants.OP_REMOVE); err != nil {
		t.Fatalf("remove error = %v", err)
	}
	if n := keyCount(t, obj); n != 0 {
		t.Errorf("object holds %d keys after remove, want 0", n)
	}
}

func TestListWorkload(t *testing.T) {
	const numOps = 20
	for _, pageSize := range []int{1, 3, 8, numOps, numOps + 1} {
		obj := openTestObject(t)
		w := newTestWorkload(t, obj, 32, 4, numOps, pageSize)

		if err := w.run(context.Background(), constants.OP_LIST); err != nil {
			t.Fatalf("list with page size %d error = %v", pageSize, err)
		}
		// one GET per key plus at least one List per page
		if min := int64(numOps + (numOps+pageSize-1)/pageSize); w.timer.Ops() < min {
			t.Errorf("page size %d: measured %d calls, want at least %d", pageSize, w.timer.Ops(), min)
		}
	}
}

// corruptObject returns a different value from every Get.
type corruptObject struct {
	store.Object
}

func (o *corruptObject) Get(ctx context.Context, key, buf []byte) error {
	if err := o.Object.Get(ctx, key, buf); err != nil {
		return err
	}
	buf[0]++
	return nil
}

// lossyObject loses key number 0 right before the first listing.
type lossyObject struct {
	store.Object
	lost bool
}

func (o *lossyObject) List(ctx context.Context, anchor *store.Anchor, page *store.Page) error {
	if !o.lost {
		o.lost = true
		if err := o.Object.Remove(ctx, []byte("0000000000000000")); err != nil {
			return err
		}
	}
	return o.Object.List(ctx, anchor, page)
}

// emptyPageObject answers every other List with an empty page, leaving the
// anchor where it was.
type emptyPageObject struct {
	store.Object
	calls   int
	empties int
}

func (o *emptyPageObject) List(ctx context.Context, anchor *store.Anchor, page *store.Page) error {
	o.calls++
	if o.calls%2 == 1 {
		o.empties++
		page.Reset()
		return nil
	}
	return o.Object.List(ctx, anchor, page)
}

func TestListWorkloadEmptyPages(t *testing.T) {
	const numOps = 10
	for _, pageSize := range []int{1, 3, numOps} {
		obj := &emptyPageObject{Object: openTestObject(t)}
		w := newTestWorkload(t, obj, 16, 8, numOps, pageSize)

		if err := w.run(context.Background(), constants.OP_LIST); err != nil {
			t.Fatalf("list with page size %d error = %v", pageSize, err)
		}
		if obj.empties == 0 || obj.empties != obj.calls-obj.empties {
			t.Errorf("page size %d: %d empty pages out of %d List calls", pageSize, obj.empties, obj.calls)
		}
		// every key read back once, every List measured including the empty ones
		if want := int64(numOps + obj.calls); w.timer.Ops() != want {
			t.Errorf("page size %d: measured %d calls, want %d", pageSize, w.timer.Ops(), want)
		}
	}
}

func TestWorkloadVerification(t *testing.T) {
	tests := []struct {
		name string
		op   string
		wrap func(store.Object) store.Object
	}{
		{"get detects wrong value", constants.OP_GET, func(o store.Object) store.Object { return &corruptObject{o} }},
		{"list detects wrong value", constants.OP_LIST, func(o store.Object) store.Object { return &corruptObject{o} }},
		{"list detects missing keys", constants.OP_LIST, func(o store.Object) store.Object { return &lossyObject{Object: o} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorkload(t, tt.wrap(openTestObject(t)), 16, 8, 10, 4)
			if err := w.run(context.Background(), tt.op); !errors.Is(err, ErrVerify) {
				t.Errorf("run() error = %v, want %v", err, ErrVerify)
			}
		})
	}
}

func TestGetWorkloadWithoutVerification(t *testing.T) {
	w := newTestWorkload(t, &corruptObject{openTestObject(t)}, 16, 8, 3, 4)
	w.verify = false
	if err := w.run(context.Background(), constants.OP_GET); err != nil {
		t.Errorf("get error = %v", err)
	}
}

// failingObject fails every data call.
type failingObject struct {
	store.Object
}

var errInjected = fmt.Errorf("%w: injected failure", store.ErrStore)

func (o *failingObject) Put(context.Context, []byte, []byte) error { return errInjected }
func (o *failingObject) Get(context.Context, []byte, []byte) error { return errInjected }
func (o *failingObject) Remove(context.Context, []byte) error { return errInjected }
func (o *failingObject) List(context.Context, *store.Anchor, *store.Page) error {
	return errInjected
}

func TestWorkloadPropagatesStoreErrors(t *testing.T) {
	w := newTestWorkload(t, &failingObject{openTestObject(t)}, 16, 8, 3, 4)

	for _, op := range constants.ALL_OPERATIONS {
		if err := w.run(context.Background(), op); !errors.Is(err, store.ErrStore) {
			t.Errorf("%s error = %v, want %v", op, err, store.ErrStore)
		}
	}
}

func TestWorkloadUnknownOperation(t *testing.T) {
	w := newTestWorkload(t, openTestObject(t), 16, 8, 1, 4)
	if err := w.run(context.Background(), "scan"); err == nil {
		t.Error("run() with unknown operation expected error")
	}
}
