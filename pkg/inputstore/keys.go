package inputstore

import "fmt"

// Redis key pattern helpers
//
// All Redis keys are namespaced so several parley deployments can share one
// Redis server, and scoped by run so one run's inbox never sees another's.
//
// Key pattern: parley:{namespace}:run:{run_id}:{entity}

// InputsKey returns the hash holding a run's input values (field = input key).
// Pattern: parley:{namespace}:run:{run_id}:inputs
func InputsKey(namespace, runID string) string {
	return fmt.Sprintf("parley:%s:run:%s:inputs", namespace, runID)
}

// InputIndexKey returns the ZSET ordering a run's input keys by creation.
// Pattern: parley:{namespace}:run:{run_id}:input_index
func InputIndexKey(namespace, runID string) string {
	return fmt.Sprintf("parley:%s:run:%s:input_index", namespace, runID)
}

// InputSeqKey returns the counter that scores InputIndexKey members.
// Pattern: parley:{namespace}:run:{run_id}:input_seq
func InputSeqKey(namespace, runID string) string {
	return fmt.Sprintf("parley:%s:run:%s:input_seq", namespace, runID)
}

// InputCreatedKey returns the hash of creation timestamps (unix ms) per input key.
// Pattern: parley:{namespace}:run:{run_id}:input_created
func InputCreatedKey(namespace, runID string) string {
	return fmt.Sprintf("parley:%s:run:%s:input_created", namespace, runID)
}
