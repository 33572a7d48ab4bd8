package config

import (
	"encoding/base64"
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port       string
	Env        string // "production" enables Secure cookies
	CORSOrigin string

	MongoURI string
	DBName   string

	JWTSecret     string
	AdminEmail    string
	AdminPassword string
	AdminName     string
	// CredentialEncryptionKey, when set (32 bytes, base64 in env), encrypts
	// the admin credential record at rest.
	CredentialEncryptionKey []byte

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	S3Bucket      string
	S3Region      string
	S3AccessKeyID string
	S3SecretKey   string
	MaxUploadMB   int64
}

func Load() (*Config, error) {
	maxMB := int64(5)
	if v := getEnv("MAX_UPLOAD_MB", "5"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			maxMB = n
		}
	}
	smtpPort := 587
	if v := getEnv("SMTP_PORT", "587"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			smtpPort = n
		}
	}
	var credKey []byte
	if k := getEnv("CREDENTIAL_ENCRYPTION_KEY", ""); k != "" {
		credKey, _ = base64.StdEncoding.DecodeString(k)
		if len(credKey) != 32 {
			credKey = nil
		}
	}

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("APP_ENV", "development"),
		CORSOrigin:              getEnv("CORS_ORIGIN", ""),
		MongoURI:                getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:                  getEnv("MONGODB_DB", "joyeria"),
		JWTSecret:               getEnv("JWT_SECRET", "change-me-in-production"),
		AdminEmail:              getEnv("ADMIN_EMAIL", ""),
		AdminPassword:           getEnv("ADMIN_PASSWORD", ""),
		AdminName:               getEnv("ADMIN_NAME", "Administrator"),
		CredentialEncryptionKey: credKey,
		SMTPHost:                getEnv("SMTP_HOST", ""),
		SMTPPort:                smtpPort,
		SMTPUser:                getEnv("SMTP_USERNAME", ""),
		SMTPPass:                getEnv("SMTP_PASSWORD", ""),
		MailFrom:                getEnv("MAIL_FROM", ""),
		S3Bucket:                getEnv("AWS_S3_BUCKET", ""),
		S3Region:                getEnv("AWS_REGION", "us-east-1"),
		S3AccessKeyID:           getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:             getEnv("AWS_SECRET_ACCESS_KEY", ""),
		MaxUploadMB:             maxMB,
	}, nil
}

func (c *Config) Production() bool {
	return c.Env == "production"
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
	"ADMIN_EMAIL",
	"ADMIN_PASSWORD",
	"SMTP_HOST",
	"SMTP_USERNAME",
	"SMTP_PASSWORD",
	"MAIL_FROM",
}

// OptionalEnvVars are logged at startup so you can confirm they are loaded when set.
var OptionalEnvVars = []string{
	"PORT",
	"APP_ENV",
	"CORS_ORIGIN",
	"SMTP_PORT",
	"AWS_S3_BUCKET",
	"AWS_REGION",
	"MAX_UPLOAD_MB",
	"CREDENTIAL_ENCRYPTION_KEY",
}

var secretEnvVars = map[string]bool{
	"JWT_SECRET":                true,
	"ADMIN_PASSWORD":            true,
	"SMTP_PASSWORD":             true,
	"AWS_SECRET_ACCESS_KEY":     true,
	"CREDENTIAL_ENCRYPTION_KEY": true,
}

// ValidateEnv checks that all required env vars are set and logs status of
// required + optional. Calls log.Fatal if any required var is missing.
func ValidateEnv() {
	var missing []string
	for _, key := range RequiredEnvVars {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		} else {
			log.Printf("env %s loaded", key)
		}
	}
	if len(missing) > 0 {
		log.Fatalf("missing required env: %s (set these in .env or environment)", strings.Join(missing, ", "))
	}
	for _, key := range OptionalEnvVars {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			log.Printf("env %s not set (optional)", key)
		} else if secretEnvVars[key] {
			log.Printf("env %s loaded", key)
		} else {
			log.Printf("env %s = %s", key, v)
		}
	}
	if os.Getenv("JWT_SECRET") == "change-me-in-production" {
		log.Fatal("JWT_SECRET must be set to a strong secret (not the default change-me-in-production)")
	}
	if k := os.Getenv("CREDENTIAL_ENCRYPTION_KEY"); k != "" {
		dec, _ := base64.StdEncoding.DecodeString(k)
		if len(dec) != 32 {
			log.Fatalf("CREDENTIAL_ENCRYPTION_KEY must be 32 bytes base64 (got %d bytes); generate with: openssl rand -base64 32", len(dec))
		}
	}
}
