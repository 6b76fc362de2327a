// Package catalog builds Iceberg catalog clients and resolves table
// identifiers against them.
package catalog

import (
	"context"
	"fmt"
	"net/http"

	"github.com/apache/iceberg-go/catalog"
	"github.com/apache/iceberg-go/catalog/glue"
	"github.com/apache/iceberg-go/catalog/rest"
	"go.uber.org/zap"

	"github.com/Upsolver/iceberg-diag/internal/logger"
)

// RESTConfig configures a REST catalog connection.
type RESTConfig struct {
	// URI is the catalog endpoint.
	URI string `yaml:"uri"`

	// Token is the bearer token, if the catalog requires one.
	Token string `yaml:"token"`

	// Warehouse is the warehouse location or name.
	Warehouse string `yaml:"warehouse"`
}

// Config selects and configures the catalog backend.
type Config struct {
	// Type is the catalog type: "rest" or "glue".
	Type string `yaml:"type"`

	// REST configures the REST backend.
	REST RESTConfig `yaml:"rest"`

	// AWS configures credentials for Glue and for S3 file access.
	AWS AWSCredentials `yaml:"aws"`
}

// Validate checks the catalog configuration.
func (c Config) Validate() error {
	switch c.Type {
	case "":
		return fmt.Errorf("catalog.type is required: must be one of \"rest\" or \"glue\"")
	case "rest":
		if c.REST.URI == "" {
			return fmt.Errorf("rest catalog URI is required (catalog.rest.uri)")
		}
		return nil
	case "glue":
		return nil
	default:
		return fmt.Errorf("unsupported catalog type: %s (must be one of \"rest\" or \"glue\")", c.Type)
	}
}

// New creates a catalog client based on the configuration.
func New(ctx context.Context, cfg Config, vlogger *logger.VerboseLogger) (catalog.Catalog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "rest":
		vlogger.Info("using REST catalog",
			zap.String("uri", cfg.REST.URI),
			zap.String("warehouse", cfg.REST.Warehouse))
		return newRESTCatalog(ctx, cfg, vlogger)

	case "glue":
		vlogger.Info("using Glue catalog",
			zap.String("region", cfg.AWS.Region),
			zap.String("profile", cfg.AWS.Profile))
		return newGlueCatalog(ctx, cfg, vlogger)

	default:
		return nil, fmt.Errorf("unsupported catalog type: %s", cfg.Type)
	}
}

func newRESTCatalog(ctx context.Context, cfg Config, vlogger *logger.VerboseLogger) (catalog.Catalog, error) {
	awsCfg, err := BuildAWSConfig(ctx, cfg.AWS)
	if err != nil {
		vlogger.Warn("failed to build AWS config, object store reads may fail", zap.Error(err))
	}

	var opts []rest.Option

	if vlogger.IsDetailed() {
		opts = append(opts, rest.WithCustomTransport(
			logger.NewHTTPTransport(http.DefaultTransport, vlogger.Underlying())))
	}

	if cfg.REST.Token != "" {
		opts = append(opts, rest.WithOAuthToken(cfg.REST.Token))
	}
	if cfg.REST.Warehouse != "" {
		opts = append(opts, rest.WithWarehouseLocation(cfg.REST.Warehouse))
	}
	if awsCfg != nil {
		opts = append(opts, rest.WithAwsConfig(*awsCfg))
	}

	cat, err := rest.NewCatalog(ctx, "rest", cfg.REST.URI, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing rest catalog: %w", err)
	}
	return cat, nil
}

func newGlueCatalog(ctx context.Context, cfg Config, vlogger *logger.VerboseLogger) (catalog.Catalog, error) {
	awsCfg, err := BuildAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, fmt.Errorf("initializing glue catalog: %w", err)
	}

	vlogger.Debug("glue catalog ready", zap.String("region", awsCfg.Region))
	return glue.NewCatalog(glue.WithAwsConfig(*awsCfg)), nil
}
