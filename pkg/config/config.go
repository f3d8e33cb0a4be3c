package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "RAPIDUPLOAD"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	AWS      AWSConfig
	S3       S3Config
	DynamoDB DynamoDBConfig
	Upload   UploadConfig
	Analysis AnalysisConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RAPIDUPLOAD_APP_ENV" required:"true"`
	Port         string `envconfig:"RAPIDUPLOAD_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RAPIDUPLOAD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RAPIDUPLOAD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type AWSConfig struct {
	Region          string `envconfig:"RAPIDUPLOAD_AWS_REGION" required:"true"`
	Endpoint        string `envconfig:"RAPIDUPLOAD_AWS_ENDPOINT"`
	AccessKeyID     string `envconfig:"RAPIDUPLOAD_AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"RAPIDUPLOAD_AWS_SECRET_ACCESS_KEY"`
}

type S3Config struct {
	Bucket       string        `envconfig:"RAPIDUPLOAD_S3_BUCKET" required:"true"`
	UploadURLTTL time.Duration `envconfig:"RAPIDUPLOAD_S3_UPLOAD_URL_TTL" default:"15m"`
}

type DynamoDBConfig struct {
	PhotosTable     string `envconfig:"RAPIDUPLOAD_DYNAMODB_PHOTOS_TABLE" default:"Photos"`
	PropertiesTable string `envconfig:"RAPIDUPLOAD_DYNAMODB_PROPERTIES_TABLE" default:"Properties"`
	AnalysesTable   string `envconfig:"RAPIDUPLOAD_DYNAMODB_ANALYSES_TABLE" default:"AnalysisResults"`
}

type UploadConfig struct {
	MaxSingleMB    int64 `envconfig:"RAPIDUPLOAD_MAX_SINGLE_UPLOAD_MB" default:"50"`
	MaxBatchFileMB int64 `envconfig:"RAPIDUPLOAD_MAX_BATCH_FILE_MB" default:"100"`
	MaxBatchSlots  int   `envconfig:"RAPIDUPLOAD_MAX_BATCH_SLOTS" default:"1000"`
	BatchWorkers   int   `envconfig:"RAPIDUPLOAD_BATCH_CONFIRM_WORKERS" default:"10"`
}

// MaxSingleBytes returns the single-upload ceiling in bytes.
func (u UploadConfig) MaxSingleBytes() int64 {
	return u.MaxSingleMB * 1024 * 1024
}

// MaxBatchFileBytes returns the per-file ceiling for batch slot requests.
func (u UploadConfig) MaxBatchFileBytes() int64 {
	return u.MaxBatchFileMB * 1024 * 1024
}

type AnalysisConfig struct {
	FunctionName       string        `envconfig:"RAPIDUPLOAD_ANALYSIS_FUNCTION_NAME"`
	ReportFunctionName string        `envconfig:"RAPIDUPLOAD_REPORT_FUNCTION_NAME" default:"rapidupload-report-generator"`
	ReportURLTTL       time.Duration `envconfig:"RAPIDUPLOAD_REPORT_URL_TTL" default:"1h"`
}
