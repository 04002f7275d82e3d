package lock

import (
	"context"
	"hash/fnv"
)

// Locker сериализует изменения одного тендера.
type Locker interface {
	// Lock блокирует ключ до вызова unlock или отмены ctx.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

const defaultStripes = 256

// LocalLocker - блокировка в пределах процесса на полосах (striped mutex).
type LocalLocker struct {
	stripes []chan struct{}
}

// NewLocalLocker создает LocalLocker; stripes <= 0 означает значение по умолчанию.
func NewLocalLocker(stripes int) *LocalLocker {
	if stripes <= 0 {
		stripes = defaultStripes
	}
	l := &LocalLocker{stripes: make([]chan struct{}, stripes)}
	for i := range l.stripes {
		l.stripes[i] = make(chan struct{}, 1)
	}
	return l
}

// Lock захватывает полосу, соответствующую ключу.
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	h := fnv.New32a()
	h.Write([]byte(key))
	stripe := l.stripes[h.Sum32()%uint32(len(l.stripes))]

	select {
	case stripe <- struct{}{}:
		return func() { <-stripe }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
