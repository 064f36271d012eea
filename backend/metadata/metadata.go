package metadata

// WorkflowMetadata is a key-value bag attached to a workflow instance. It is
// carried across continue-as-new and into sub-workflows.
type WorkflowMetadata map[string]string

func (wm WorkflowMetadata) Get(key string) string {
	return wm[key]
}

func (wm WorkflowMetadata) Set(key, value string) {
	wm[key] = value
}

func (wm WorkflowMetadata) Keys() []string {
	keys := make([]string, 0, len(wm))
	for k := range wm {
		keys = append(keys, k)
	}

	return keys
}
