package main

import (
	"context"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blaskocode/RapidUpload/api/routes"
	"github.com/blaskocode/RapidUpload/internal/analysis"
	"github.com/blaskocode/RapidUpload/internal/cleanup"
	"github.com/blaskocode/RapidUpload/internal/photos"
	"github.com/blaskocode/RapidUpload/internal/properties"
	"github.com/blaskocode/RapidUpload/internal/reports"
	"github.com/blaskocode/RapidUpload/pkg/config"
	"github.com/blaskocode/RapidUpload/pkg/dynamo"
	"github.com/blaskocode/RapidUpload/pkg/lambda"
	"github.com/blaskocode/RapidUpload/pkg/logger"
	"github.com/blaskocode/RapidUpload/pkg/metrics"
	"github.com/blaskocode/RapidUpload/pkg/storage/s3"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	awsOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.AccessKeyID != "" {
		awsOpts = append(awsOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsOpts...)
	if err != nil {
		logg.Error(context.Background(), "failed to load aws config", err)
		os.Exit(1)
	}

	// A custom endpoint points every client at localstack or minio.
	dynamoAPI := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
		}
	})
	s3API := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
			o.UsePathStyle = true
		}
	})
	lambdaAPI := awslambda.NewFromConfig(awsCfg, func(o *awslambda.Options) {
		if cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
		}
	})

	db := dynamo.New(dynamoAPI)
	store := s3.New(s3API, cfg.S3.Bucket, cfg.AWS.Region)
	invoker := lambda.NewInvoker(lambdaAPI, cfg.Analysis.FunctionName)
	reportInvoker := lambda.NewInvoker(lambdaAPI, cfg.Analysis.ReportFunctionName)

	photoRepo := photos.NewRepository(db, cfg.DynamoDB.PhotosTable, cfg.DynamoDB.PropertiesTable)
	propertyRepo := properties.NewRepository(db, cfg.DynamoDB.PropertiesTable)
	analysisRepo := analysis.NewRepository(db, cfg.DynamoDB.AnalysesTable)

	uploadMetrics := metrics.NewUploadMetrics(prometheus.DefaultRegisterer)

	photoService, err := photos.NewService(photoRepo, propertyRepo, store, analysisRepo, uploadMetrics, logg, photos.Options{
		UploadURLTTL:      cfg.S3.UploadURLTTL,
		MaxSingleBytes:    cfg.Upload.MaxSingleBytes(),
		MaxBatchFileBytes: cfg.Upload.MaxBatchFileBytes(),
		MaxBatchSlots:     cfg.Upload.MaxBatchSlots,
		BatchWorkers:      cfg.Upload.BatchWorkers,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create photo service", err)
		os.Exit(1)
	}

	propertyService, err := properties.NewService(propertyRepo, photoRepo, store, analysisRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create property service", err)
		os.Exit(1)
	}

	analysisService, err := analysis.NewService(analysisRepo, photoRepo, invoker, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create analysis service", err)
		os.Exit(1)
	}

	reportService, err := reports.NewService(propertyRepo, store, reportInvoker, logg, cfg.Analysis.ReportURLTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create report service", err)
		os.Exit(1)
	}

	cleanupService, err := cleanup.NewService(store, photoRepo, propertyRepo, analysisRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cleanup service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, photoService, propertyService, analysisService, reportService, cleanupService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
