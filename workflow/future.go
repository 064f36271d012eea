package workflow

import "github.com/durableio/rewind/internal/sync"

type Future[T any] = sync.Future[T]
