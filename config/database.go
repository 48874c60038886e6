package config

import (
	"time"

	"catalogadmin/utils"
)

type DatabaseConfig struct {
	URI               string
	MaxPoolSize       uint64
	MinPoolSize       uint64
	MaxConnIdleTime   time.Duration
	DatabaseName      string
	RetryWrites       bool
	UsersCollection   string
	SessionCollection string
	AuditCollection   string
}

func LoadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URI:               utils.GetEnvAsString("MONGO_URI", "mongodb://localhost:27017"),
		MaxPoolSize:       utils.GetEnvAsUint64("MONGO_MAX_POOL_SIZE", 100),
		MinPoolSize:       utils.GetEnvAsUint64("MONGO_MIN_POOL_SIZE", 10),
		MaxConnIdleTime:   time.Duration(utils.GetEnvAsInt("MONGO_MAX_CONN_IDLE_TIME", 60)) * time.Second,
		DatabaseName:      utils.GetEnvAsString("MONGO_DB", "catalog"),
		RetryWrites:       utils.GetEnvAsBool("MONGO_RETRY_WRITES", true),
		UsersCollection:   utils.GetEnvAsString("USERS_COLLECTION", "usuarios"),
		SessionCollection: utils.GetEnvAsString("SESSION_COLLECTION", "sessions"),
		AuditCollection:   utils.GetEnvAsString("AUDIT_COLLECTION", "audit_logs"),
	}
}

func (c DatabaseConfig) MongoOptions() utils.MongoOptions {
	return utils.MongoOptions{
		URI:             c.URI,
		MaxPoolSize:     c.MaxPoolSize,
		MinPoolSize:     c.MinPoolSize,
		MaxConnIdleTime: c.MaxConnIdleTime,
		RetryWrites:     c.RetryWrites,
	}
}

// RedisConfig holds the connection URL for redis. An empty URL disables redis
// and the in-memory stores are used instead.
type RedisConfig struct {
	URL    string
	Prefix string
}

func LoadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:    utils.GetEnvAsString("REDIS_URL", ""),
		Prefix: utils.GetEnvAsString("REDIS_PREFIX", "catalog"),
	}
}
