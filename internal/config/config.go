package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/semmidev/rdsbackup/internal/domain"
)

const (
	KeyRDSHost      = "RDS_HOST"
	KeyRDSPort      = "RDS_PORT"
	KeyRDSDBName    = "RDS_DB_NAME"
	KeyRDSUsername  = "RDS_USERNAME"
	KeyRDSPassword  = "RDS_PASSWORD"
	KeyRDSSSLMode   = "RDS_SSL_MODE"
	KeyRDSPreflight = "RDS_PREFLIGHT"
	KeyPGDumpPath   = "PG_DUMP_PATH"

	KeyAWSRegion        = "AWS_REGION"
	KeyAWSDefaultRegion = "AWS_DEFAULT_REGION"

	KeyStorageBackend        = "STORAGE_BACKEND"
	KeyS3Bucket              = "S3_BUCKET"
	KeyS3Endpoint            = "S3_ENDPOINT"
	KeyS3AccessKey           = "S3_ACCESS_KEY"
	KeyS3SecretKey           = "S3_SECRET_KEY"
	KeyS3UseSSL              = "S3_USE_SSL"
	KeyGDriveCredentialsFile = "GDRIVE_CREDENTIALS_FILE"
	KeyGDriveFolderID        = "GDRIVE_FOLDER_ID"
	KeyLocalBackupPath       = "LOCAL_BACKUP_PATH"

	KeySNSTopicARN       = "SNS_TOPIC_ARN"
	KeyTelegramBotToken  = "TELEGRAM_BOT_TOKEN"
	KeyTelegramChatID    = "TELEGRAM_CHAT_ID"
	KeyCloudWatchNS      = "CLOUDWATCH_NAMESPACE"
	KeyBackupTimeout     = "BACKUP_TIMEOUT"
	KeyUploadMaxAttempts = "UPLOAD_MAX_ATTEMPTS"
	KeyUploadRetryDelay  = "UPLOAD_RETRY_DELAY"
	KeyWorkDir           = "WORK_DIR"
	KeyBackupSchedule    = "BACKUP_SCHEDULE"
	KeyLogLevel          = "LOG_LEVEL"
	KeyLogFile           = "LOG_FILE"
)

const (
	BackendS3     = "s3"
	BackendMinIO  = "minio"
	BackendGDrive = "gdrive"
	BackendLocal  = "local"
)

const (
	DefaultTimeout     = time.Hour
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
	DefaultSSLMode     = "prefer"
	DefaultPGDumpPath  = "pg_dump"
)

// Config is the run configuration. It is resolved once per run and passed
// explicitly to every stage. Schedule is only a hint for the notification and
// is not validated here.
type Config struct {
	Database DatabaseConfig
	Storage  StorageConfig
	Notify   NotifyConfig

	Region           string
	MetricsNamespace string
	Timeout          time.Duration
	Upload           UploadConfig
	WorkDir          string
	Schedule         string
	Log              LogConfig
}

type DatabaseConfig struct {
	Host      string
	Port      int
	Name      string
	Username  string
	Password  string
	SSLMode   string
	DumpPath  string
	Preflight bool
}

type StorageConfig struct {
	Backend string

	// S3 and MinIO
	Bucket    string
	Prefix    string
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// Google Drive
	CredentialsFile string
	FolderID        string

	// Local directory
	LocalPath string
}

type NotifyConfig struct {
	TopicARN         string
	TelegramBotToken string
	TelegramChatID   string
}

// Enabled reports whether any notification channel is configured.
func (n NotifyConfig) Enabled() bool {
	return n.TopicARN != "" || n.TelegramEnabled()
}

// TelegramEnabled reports whether both the bot token and chat id are set.
func (n NotifyConfig) TelegramEnabled() bool {
	return n.TelegramBotToken != "" && n.TelegramChatID != ""
}

type UploadConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

type LogConfig struct {
	Level string
	File  string
}

// NewSource returns a configuration source backed by the process environment
// and, when file is not empty, a YAML or dotenv file. Environment wins. If the
// file cannot be read the environment-only source is returned with the error.
func NewSource(file string) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return v, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return v, nil
}

// Resolve reads the run configuration from src. When required keys are
// missing or values are malformed it returns a *domain.ConfigurationError
// naming all of them, together with whatever could be resolved so that the
// failure can still be reported.
func Resolve(src *viper.Viper) (Config, error) {
	r := &resolver{src: src}

	cfg := Config{
		Database: DatabaseConfig{
			Host:      r.required(KeyRDSHost),
			Port:      r.port(KeyRDSPort),
			Name:      r.required(KeyRDSDBName),
			Username:  r.required(KeyRDSUsername),
			Password:  r.required(KeyRDSPassword),
			SSLMode:   r.optional(KeyRDSSSLMode, DefaultSSLMode),
			DumpPath:  r.optional(KeyPGDumpPath, DefaultPGDumpPath),
			Preflight: r.boolean(KeyRDSPreflight, true),
		},
		Notify: NotifyConfig{
			TopicARN:         r.optional(KeySNSTopicARN, ""),
			TelegramBotToken: r.optional(KeyTelegramBotToken, ""),
			TelegramChatID:   r.optional(KeyTelegramChatID, ""),
		},
		MetricsNamespace: r.optional(KeyCloudWatchNS, ""),
		Timeout:          r.duration(KeyBackupTimeout, DefaultTimeout),
		Upload: UploadConfig{
			MaxAttempts: r.positiveInt(KeyUploadMaxAttempts, DefaultMaxAttempts),
			RetryDelay:  r.duration(KeyUploadRetryDelay, DefaultRetryDelay),
		},
		WorkDir:  r.optional(KeyWorkDir, os.TempDir()),
		Schedule: r.optional(KeyBackupSchedule, ""),
		Log: LogConfig{
			Level: r.optional(KeyLogLevel, "info"),
			File:  r.optional(KeyLogFile, ""),
		},
	}

	cfg.Region = r.optional(KeyAWSRegion, r.optional(KeyAWSDefaultRegion, ""))
	if cfg.Region == "" {
		r.missing = append(r.missing, KeyAWSRegion)
	}

	cfg.Storage = r.storage()

	if err := r.err(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (r *resolver) storage() StorageConfig {
	s := StorageConfig{
		Backend:   strings.ToLower(r.optional(KeyStorageBackend, BackendS3)),
		Endpoint:  r.optional(KeyS3Endpoint, ""),
		AccessKey: r.optional(KeyS3AccessKey, ""),
		SecretKey: r.optional(KeyS3SecretKey, ""),
		UseSSL:    r.boolean(KeyS3UseSSL, true),
	}

	switch s.Backend {
	case BackendS3, BackendMinIO:
		s.Bucket, s.Prefix = splitBucket(r.required(KeyS3Bucket))
		if s.Backend == BackendMinIO {
			s.Endpoint = r.required(KeyS3Endpoint)
			s.AccessKey = r.required(KeyS3AccessKey)
			s.SecretKey = r.required(KeyS3SecretKey)
		}
	case BackendGDrive:
		s.CredentialsFile = r.required(KeyGDriveCredentialsFile)
		s.FolderID = r.required(KeyGDriveFolderID)
		_, s.Prefix = splitBucket(r.optional(KeyS3Bucket, ""))
	case BackendLocal:
		s.LocalPath = r.required(KeyLocalBackupPath)
	default:
		r.invalidf(KeyStorageBackend, "unknown backend %q", s.Backend)
	}

	return s
}

// splitBucket separates "bucket/some/prefix" into bucket and prefix.
func splitBucket(raw string) (bucket, prefix string) {
	bucket, prefix, _ = strings.Cut(strings.TrimSpace(raw), "/")
	return bucket, strings.Trim(prefix, "/")
}

type resolver struct {
	src     *viper.Viper
	missing []string
	invalid []string
}

func (r *resolver) get(key string) string {
	return strings.TrimSpace(r.src.GetString(key))
}

func (r *resolver) required(key string) string {
	v := r.get(key)
	if v == "" {
		r.missing = append(r.missing, key)
	}
	return v
}

func (r *resolver) optional(key, def string) string {
	if v := r.get(key); v != "" {
		return v
	}
	return def
}

func (r *resolver) port(key string) int {
	v := r.required(key)
	if v == "" {
		return 0
	}
	p, err := strconv.Atoi(v)
	if err != nil || p < 1 || p > 65535 {
		r.invalidf(key, "not a valid port")
		return 0
	}
	return p
}

func (r *resolver) boolean(key string, def bool) bool {
	v := r.get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.invalidf(key, "not a boolean")
		return def
	}
	return b
}

func (r *resolver) positiveInt(key string, def int) int {
	v := r.get(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 1 {
		r.invalidf(key, "must be a positive integer")
		return def
	}
	return i
}

// duration accepts Go durations ("90m") or a plain number of seconds ("3600").
func (r *resolver) duration(key string, def time.Duration) time.Duration {
	v := r.get(key)
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		r.invalidf(key, "not a positive duration")
		return def
	}
	return d
}

func (r *resolver) invalidf(key, format string, args ...any) {
	r.invalid = append(r.invalid, fmt.Sprintf("%s (%s)", key, fmt.Sprintf(format, args...)))
}

func (r *resolver) err() error {
	if len(r.missing) == 0 && len(r.invalid) == 0 {
		return nil
	}
	return &domain.ConfigurationError{Missing: r.missing, Invalid: r.invalid}
}
