package store

import (
	"context"
	"errors"
	"fmt"
)

// Session owns everything one benchmark invocation needs: a connection, a
// freshly created container and an open object inside it. Close releases all
// of them in reverse order and destroys the container, so no keys survive
// into the next invocation.
type Session struct {
	conn        Conn
	containerID ContainerID
	object      Object
	teardown    []func(ctx context.Context) error
	closed      bool
}

// OpenSession connects to poolID, creates a new container and opens oid in it.
// On failure, whatever was already acquired is released before returning.
func OpenSession(ctx context.Context, driver Driver, poolID string, oid ObjectID) (*Session, error) {
	s := &Session{}

	conn, err := driver.Connect(ctx, poolID)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	s.push(func(context.Context) error {
		return conn.Close()
	})

	id, err := conn.CreateContainer(ctx)
	if err != nil {
		return nil, s.abort(ctx, err)
	}
	s.containerID = id
	s.push(func(ctx context.Context) error {
		return conn.DestroyContainer(ctx, id)
	})

	container, err := conn.OpenContainer(ctx, id, OpenReadWrite)
	if err != nil {
		return nil, s.abort(ctx, err)
	}
	s.push(func(context.Context) error {
		return container.Close()
	})

	object, err := container.OpenObject(ctx, oid, OpenReadWrite)
	if err != nil {
		return nil, s.abort(ctx, err)
	}
	s.object = object
	s.push(func(context.Context) error {
		return object.Close()
	})

	return s, nil
}

func (s *Session) push(fn func(ctx context.Context) error) {
	s.teardown = append(s.teardown, fn)
}

func (s *Session) abort(ctx context.Context, cause error) error {
	// release even when the failure was a cancelled ctx
	if err := s.Close(context.WithoutCancel(ctx)); err != nil {
		return errors.Join(cause, fmt.Errorf("teardown after failed setup: %w", err))
	}
	return cause
}

// Object returns the object the benchmark runs against.
func (s *Session) Object() Object {
	return s.object
}

// ContainerID returns the id of the container created for this session.
func (s *Session) ContainerID() ContainerID {
	return s.containerID
}

// Close runs every teardown step exactly once, even when earlier steps fail,
// and returns the joined errors. Calling Close again is a no-op.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for i := len(s.teardown) - 1; i >= 0; i-- {
		if err := s.teardown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.teardown = nil
	return errors.Join(errs...)
}
