package config

type StorageKind string

const (
	StorageMemory StorageKind = "memory"
	StorageRedis  StorageKind = "redis"
)

type StorageConfig interface {
	GetTokenStorage() StorageKind
	GetRedisAddress() string
	GetRedisPassword() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetTokenStorage() StorageKind {
	if GetEnv("TOKEN_STORAGE", string(StorageMemory)) == string(StorageRedis) {
		return StorageRedis
	}
	return StorageMemory
}

func (Storage) GetRedisAddress() string {
	return GetEnv("REDIS_ADDRESS", "localhost:6379")
}

func (Storage) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}
