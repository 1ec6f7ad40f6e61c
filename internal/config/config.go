package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Port          string
	AllowedOrigin string
	StoreBackend  string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AuthSecret            string
	AccessTokenTTLMinutes int
	AdminUsername         string
	AdminPassword         string
	AdminDisplayName      string

	ExchangeRate  decimal.Decimal
	StoreTimezone string
	StoreName     string
	StoreTagline  string
	StorePhone    string
	StoreAddress  string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string
	MaxImageBytes  int64

	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from the environment. Values in a local .env
// file are applied first without overriding variables already set.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env file loaded: %v", err)
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	rate, err := decimal.NewFromString(getEnv("USD_KHR_RATE", "4100"))
	if err != nil || !rate.IsPositive() {
		log.Printf("[config] WARN: invalid USD_KHR_RATE, using 4100")
		rate = decimal.NewFromInt(4100)
	}
	maxImage, err := strconv.ParseInt(getEnv("MAX_IMAGE_BYTES", "5242880"), 10, 64)
	if err != nil || maxImage < 1 {
		maxImage = 5 << 20
	}
	useSSL, _ := strconv.ParseBool(getEnv("MINIO_USE_SSL", "false"))

	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		StoreBackend:  strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND"))),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		AdminUsername:         getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:         getEnv("ADMIN_PASSWORD", "password"),
		AdminDisplayName:      getEnv("ADMIN_DISPLAY_NAME", "Store Manager"),

		ExchangeRate:  rate,
		StoreTimezone: getEnv("STORE_TIMEZONE", "Asia/Phnom_Penh"),
		StoreName:     getEnv("STORE_NAME", "Teenager Collection"),
		StoreTagline:  getEnv("STORE_TAGLINE", "Fashion & Style Collection"),
		StorePhone:    getEnv("STORE_PHONE", "010 414 418"),
		StoreAddress:  getEnv("STORE_ADDRESS", "Home Number 10Eo ផ្លូវ 608 សង្កាត់បឹងកក់២ ខណ្ឌទួលគោក រាជធានីភ្នំពេញ"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ROOT_USER"),
		MinioSecretKey: os.Getenv("MINIO_ROOT_PASSWORD"),
		MinioBucket:    getEnv("MINIO_BUCKET", "pos-images"),
		MinioUseSSL:    useSSL,
		MinioPublicURL: os.Getenv("MINIO_PUBLIC_URL"),
		MaxImageBytes:  maxImage,

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "pos.sales"),
	}

	if cfg.StoreBackend == "" {
		switch {
		case cfg.DatabaseURL != "":
			cfg.StoreBackend = BackendPostgres
		case cfg.RedisAddr != "":
			cfg.StoreBackend = BackendRedis
		default:
			cfg.StoreBackend = BackendMemory
		}
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
