package payload

// Payload is a serialized value passed into or produced by a workflow,
// activity, or handler.
type Payload []byte
