package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port          string
	MongoURI      string
	DBName        string
	S3Bucket      string
	S3Region      string
	S3AccessKeyID string
	S3SecretKey   string
	JWTSecret     string
	MaxUploadMB   int64
}

func Load() (*Config, error) {
	maxMB := int64(50)
	if v := getEnv("MAX_UPLOAD_MB", "50"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			maxMB = n
		}
	}
	return &Config{
		Port:          getEnv("PORT", "8080"),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:        getEnv("MONGODB_DB", "elibrary"),
		S3Bucket:      getEnv("AWS_S3_BUCKET", ""),
		S3Region:      getEnv("AWS_REGION", "us-east-1"),
		S3AccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		MaxUploadMB:   maxMB,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// RequiredEnvVars are checked at startup; app exits if any are unset.
var RequiredEnvVars = []string{
	"MONGODB_URI",
	"MONGODB_DB",
	"JWT_SECRET",
}

// ValidateEnv checks that all required env vars are set. Calls log.Fatal
// if any required var is missing.
func ValidateEnv() {
	var missing []string
	for _, key := range RequiredEnvVars {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			missing = append(missing, key)
		} else {
			log.Printf("env %s loaded", key)
		}
	}
	if len(missing) > 0 {
		log.Fatalf("missing required env: %s (set these in .env or environment)", strings.Join(missing, ", "))
	}
	if os.Getenv("JWT_SECRET") == "change-me-in-production" {
		log.Fatal("JWT_SECRET must be set to a strong secret (not the default change-me-in-production)")
	}
	if os.Getenv("AWS_S3_BUCKET") == "" {
		log.Println("warning: AWS_S3_BUCKET not set; uploads will fail")
	}
}
