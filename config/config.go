package config

import (
	"os"
	"strconv"
	"strings"

	mongoutil "LinkupIM/data/database/mgo/mongoutil"
	"LinkupIM/service/storage"
	"LinkupIM/tools/ids"
)

type AppConfig struct {
	GatewayID string // node id, participates in presence values and relay subjects
	Port      int    // http listen port

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NatsURL string

	KafkaBrokers []string
	KafkaTopic   string // empty disables event publishing

	JWTSecret string
}

var Global = AppConfig{
	GatewayID:     env("IM_GATEWAY_ID", "gateway_1"),
	Port:          envInt("IM_PORT", 8080),
	MongoURI:      env("IM_MONGO_URI", "mongodb://localhost:27017"),
	MongoDatabase: env("IM_MONGO_DB", "linkupchat"),
	RedisAddr:     env("IM_REDIS_ADDR", "127.0.0.1:6379"),
	RedisPassword: env("IM_REDIS_PASSWORD", ""),
	RedisDB:       envInt("IM_REDIS_DB", 0),
	NatsURL:       env("IM_NATS_URL", "nats://127.0.0.1:4222"),
	KafkaBrokers:  envList("IM_KAFKA_BROKERS", nil),
	KafkaTopic:    env("IM_KAFKA_TOPIC", ""),
	JWTSecret:     env("IM_JWT_SECRET", "mN9b1f8zPq+W2xjX/45sKcVd0TfyoG+3Hp5Z8q9Rj1o="),
}

func GetJwtSecret() []byte {
	return []byte(Global.JWTSecret)
}

func ConfigIds() {
	ids.SetNodeID(int64(envInt("IM_NODE_ID", 1)))
}

func ConfigRedis() error {
	return storage.InitRedis(storage.Config{
		Addr:     Global.RedisAddr,
		Password: Global.RedisPassword,
		DB:       Global.RedisDB,
	})
}

func MongoConfig() *mongoutil.Config {
	return &mongoutil.Config{
		Uri:         Global.MongoURI,
		Database:    Global.MongoDatabase,
		MaxPoolSize: 20,
		MaxRetry:    3,
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return def
}
