package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/apmoronez/dogbot/internal/metrics"
	"github.com/apmoronez/dogbot/internal/model"
	"github.com/apmoronez/dogbot/internal/util/workerpool"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ImportResult reports what happened to one document of an import
type ImportResult struct {
	Index int    `json:"index" yaml:"index"`
	ID    int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Err   error  `json:"-" yaml:"-"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ImportConfig sizes the import worker pool
type ImportConfig struct {
	Workers   int
	QueueSize int
}

// ImportService bulk-creates dogs from a stream of YAML documents
type ImportService struct {
	dogs    *DogService
	cfg     ImportConfig
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewImportService creates a new import service
func NewImportService(dogs *DogService, cfg ImportConfig, m *metrics.Metrics, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		dogs:    dogs,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

// Decode reads every document of a YAML stream. Empty documents are skipped.
func Decode(r io.Reader) ([]model.Patch, error) {
	dec := yaml.NewDecoder(r)

	var patches []model.Patch
	for i := 0; ; i++ {
		var doc map[string]interface{}
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return patches, nil
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if len(doc) == 0 {
			continue
		}
		patches = append(patches, model.Patch(doc))
	}
}

// Import creates one dog per document of r. A failing document does not
// stop the others; the returned results follow document order.
func (s *ImportService) Import(ctx context.Context, tenant string, r io.Reader) ([]ImportResult, error) {
	patches, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return s.ImportPatches(ctx, tenant, patches)
}

// ImportPatches creates one dog per patch concurrently
func (s *ImportService) ImportPatches(ctx context.Context, tenant string, patches []model.Patch) ([]ImportResult, error) {
	start := time.Now()
	results := make([]ImportResult, len(patches))

	pool := workerpool.NewWorkerPool(workerpool.Config{
		Name:       "import",
		MaxWorkers: s.cfg.Workers,
		QueueSize:  s.cfg.QueueSize,
		Logger:     s.logger,
		OnResult: func(task workerpool.Task, err error, _ time.Duration) {
			if s.metrics != nil {
				s.metrics.RecordImport(err)
			}
			if err != nil {
				i, _ := strconv.Atoi(task.ID)
				results[i].Err = err
				results[i].Error = err.Error()
			}
		},
	})
	defer pool.Stop(5 * time.Second)

	var submitErr error
	for i, patch := range patches {
		results[i].Index = i

		err := pool.Submit(ctx, workerpool.Task{
			ID: strconv.Itoa(i),
			Fn: func(ctx context.Context) error {
				dog, err := s.dogs.Create(ctx, tenant, patch)
				if err != nil {
					return err
				}
				results[i].ID = dog.ID
				results[i].Name = dog.Name()
				return nil
			},
		})
		if err != nil {
			submitErr = err
			for j := i; j < len(patches); j++ {
				results[j].Index = j
				results[j].Err = err
				results[j].Error = err.Error()
			}
			break
		}
	}
	pool.Wait()

	stats := pool.Stats()
	s.logger.Info("Import finished",
		zap.String("tenant_id", tenant),
		zap.Int("documents", len(patches)),
		zap.Uint64("created", stats.Completed),
		zap.Uint64("failed", stats.Failed),
		zap.Duration("duration", time.Since(start)))

	return results, submitErr
}
