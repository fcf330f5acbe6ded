package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "cylestio"
)

// Ключи блокировок
const (
	RedisKeyLockIndexer = RedisNamespace + ":lock:indexer"
)
