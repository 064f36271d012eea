package history

import "github.com/durableio/rewind/core"

// EventsByWorkflowInstance groups the given events by their target instance,
// preserving order within each group.
func EventsByWorkflowInstance(events []*WorkflowEvent) map[core.WorkflowInstance][]*WorkflowEvent {
	groupedEvents := make(map[core.WorkflowInstance][]*WorkflowEvent)

	for _, m := range events {
		instance := *m.WorkflowInstance

		groupedEvents[instance] = append(groupedEvents[instance], m)
	}

	return groupedEvents
}
