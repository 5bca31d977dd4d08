package app

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"devicepool/db"
	"devicepool/events"
	"devicepool/identity"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router    *gin.Engine
	DB        *gorm.DB
	RDB       *redis.Client
	Publisher events.Publisher
	Verifier  identity.Verifier
	Config    Config
}

// Config 从环境变量读取
type Config struct {
	RedisAddr     string
	RedisPwd      string
	WebOrigin     string
	KafkaBrokers  []string
	EventTopic    string
	TokenCacheTTL time.Duration
}

func MustNew() *App {
	cfg := loadConfig()

	dbConn := db.ConnectDB()

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	// --- Event channel ---
	// 未配置时降级为 Nop，不影响借还
	var pub events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		p, err := events.NewSaramaPublisher(cfg.KafkaBrokers)
		if err != nil {
			log.Printf("kafka unavailable, events disabled: %v", err)
		} else {
			pub = p
		}
	}

	verifier := identity.NewCachedVerifier(identity.NewRedisVerifier(rdb), cfg.TokenCacheTTL)

	// --- Gin ---
	r := gin.Default()
	useCORS(r, cfg.WebOrigin)
	a := &App{
		Router: r, DB: dbConn, RDB: rdb, Publisher: pub, Verifier: verifier, Config: cfg,
	}
	return a
}

func (a *App) Close() {
	_ = a.Publisher.Close()
	_ = a.RDB.Close()
}

func loadConfig() Config {
	get := func(k, def string) string {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		return v
	}
	var brokers []string
	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if s := strings.TrimSpace(b); s != "" {
			brokers = append(brokers, s)
		}
	}
	ttl := 30 * time.Second
	if d, err := time.ParseDuration(get("TOKEN_CACHE_TTL", "30s")); err == nil {
		ttl = d
	}
	return Config{
		RedisAddr:     get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:      os.Getenv("REDIS_PASSWORD"),
		WebOrigin:     get("WEB_ORIGIN", "http://localhost:3000"),
		KafkaBrokers:  brokers,
		EventTopic:    get("EVENT_TOPIC", "loan-events"),
		TokenCacheTTL: ttl,
	}
}
