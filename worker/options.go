package worker

import (
	"time"

	"github.com/durableio/rewind/internal/sync"
	"github.com/durableio/rewind/workflow/executor"
)

type Options struct {
	// WorkflowPollers is the number of workflow task pollers to start. Defaults to 2.
	WorkflowPollers int

	// MaxParallelWorkflowTasks determines the maximum number of concurrent workflow tasks
	// processed by the worker. The default is 0 which is no limit.
	MaxParallelWorkflowTasks int

	// ActivityPollers is the number of activity task pollers to start. Defaults to 2.
	ActivityPollers int

	// MaxParallelActivityTasks determines the maximum number of concurrent activity tasks
	// processed by the worker. The default is 0 which is no limit.
	MaxParallelActivityTasks int

	// WorkflowPollingInterval is the interval between polling for new workflow tasks.
	// Defaults to 200ms.
	WorkflowPollingInterval time.Duration

	// ActivityPollingInterval is the interval between polling for new activity tasks.
	// Defaults to 200ms.
	ActivityPollingInterval time.Duration

	// WorkflowExecutorCacheSize is the max size of the workflow executor cache. Defaults to 128.
	WorkflowExecutorCacheSize int

	// WorkflowExecutorCacheTTL is the max TTL of the workflow executor cache. Defaults to 10 seconds.
	WorkflowExecutorCacheTTL time.Duration

	// WorkflowExecutorCache is the cache to use for workflow executors. If nil, a default
	// cache implementation will be used.
	WorkflowExecutorCache executor.ExecutorCache

	// DeadlockBudget bounds how long workflow code may run without yielding.
	DeadlockBudget time.Duration

	// MaxHistorySize fails workflows whose history grows beyond this number of events.
	MaxHistorySize int64
}

var DefaultOptions = Options{
	WorkflowPollers:          2,
	WorkflowPollingInterval:  200 * time.Millisecond,
	MaxParallelWorkflowTasks: 0,

	WorkflowExecutorCacheSize: 128,
	WorkflowExecutorCacheTTL:  time.Second * 10,
	WorkflowExecutorCache:     nil,

	ActivityPollers:          2,
	ActivityPollingInterval:  200 * time.Millisecond,
	MaxParallelActivityTasks: 0,

	DeadlockBudget: sync.DefaultDeadlockBudget,
	MaxHistorySize: 10_000,
}
