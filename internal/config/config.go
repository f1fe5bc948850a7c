package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvProduction = "production"

	proveSandboxURL    = "https://platform.uat.proveapis.com"
	proveProductionURL = "https://platform.proveapis.com"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	S3AuditBucket string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SNSRegion string

	// Prove provider settings. ProveBaseURL is resolved once at load time
	// (sandbox unless AppEnv is production) and injected into the client.
	ProveBaseURL  string
	ProveClientID string
	ProveUsername string
	ProvePassword string
	ProveTimeout  time.Duration

	// Verification flow caps and gates.
	SMSResendCap      int
	SMSResendInterval time.Duration
	OwnershipCheckCap int

	// FinalTargetURL is the page the instant link lands on after the click.
	FinalTargetURL string

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Records           string
	RequestSnapshots  string
	ResponseSnapshots string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	appEnv := getEnv("APP_ENV", "development")
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  appEnv,

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Records:           getEnv("DYNAMO_TABLE_RECORDS", "prefill_records"),
			RequestSnapshots:  getEnv("DYNAMO_TABLE_REQUEST_SNAPSHOTS", "request_snapshots"),
			ResponseSnapshots: getEnv("DYNAMO_TABLE_RESPONSE_SNAPSHOTS", "response_snapshots"),
		},

		S3AuditBucket: getEnv("S3_AUDIT_BUCKET", "prefill-verify-audit"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 1*time.Hour),

		SNSRegion: getEnv("SNS_REGION", "us-east-1"),

		ProveBaseURL:  getEnv("PROVE_BASE_URL", defaultProveURL(appEnv)),
		ProveClientID: getEnv("PROVE_CLIENT_ID", ""),
		ProveUsername: getEnv("PROVE_USERNAME", ""),
		ProvePassword: getEnv("PROVE_PASSWORD", ""),
		ProveTimeout:  getEnvDuration("PROVE_TIMEOUT", 10*time.Second),

		SMSResendCap:      getEnvInt("SMS_RESEND_CAP", 4),
		SMSResendInterval: getEnvDuration("SMS_RESEND_INTERVAL", 60*time.Second),
		OwnershipCheckCap: getEnvInt("OWNERSHIP_CHECK_CAP", 3),

		FinalTargetURL: getEnv("FINAL_TARGET_URL", "http://localhost:3000/verify"),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func defaultProveURL(appEnv string) string {
	if appEnv == EnvProduction {
		return proveProductionURL
	}
	return proveSandboxURL
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
