// Package inputstore provides the durable stores behind run input channels:
// Redis (RedisStore), Postgres (PostgresStore) and process memory
// (MemoryStore). All of them implement runinput.Store.
//
// # Redis Schema
//
// Keys follow the pattern parley:{namespace}:run:{run_id}:{entity}
//
// Values: parley:{namespace}:run:{run_id}:inputs (hash, field = input key)
// Creation index: parley:{namespace}:run:{run_id}:input_index (zset)
// Sequence: parley:{namespace}:run:{run_id}:input_seq
// Timestamps: parley:{namespace}:run:{run_id}:input_created (hash)
//
// Create runs as one Lua script so a value is never visible without its index
// entry.
package inputstore
