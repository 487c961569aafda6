package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/filipesmpacheco/projdataviz/internal/config"
	"github.com/filipesmpacheco/projdataviz/internal/dataprocessing"
	"github.com/filipesmpacheco/projdataviz/internal/metrics"
	"github.com/filipesmpacheco/projdataviz/pkg/domain"
)

// Sentinel errors surfaced to the transport layer.
var ErrDatasetNotFound = errors.New("dataset not found")

// Dataset is one uploaded file after cleaning: the records, the drop
// accounting, and the precomputed dashboard.
type Dataset struct {
	Meta      domain.DatasetMeta        `json:"meta"`
	Records   []domain.PriceRecord      `json:"records"`
	Stats     dataprocessing.ParseStats `json:"stats"`
	Dashboard domain.Dashboard          `json:"dashboard"`
}

// IngestOptions describes one upload.
type IngestOptions struct {
	Name   string `validate:"required,max=255"`
	Format string `validate:"required,oneof=csv xlsx"`
}

// DatasetService holds uploaded datasets in memory, bounded by
// config; the oldest dataset is evicted when the bound is exceeded.
type DatasetService struct {
	logger     *slog.Logger
	parser     *dataprocessing.Parser
	aggregator *dataprocessing.Aggregator
	validate   *validator.Validate

	maxDatasets int

	mu       sync.RWMutex
	datasets map[string]*Dataset
	order    []string // insertion order, oldest first
}

// NewDatasetService creates a new dataset service.
func NewDatasetService(cfg *config.Config, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "dataset_service"))

	logger.Info("dataset service initialized",
		slog.Int("max_datasets", cfg.Ingest.MaxDatasets),
		slog.Int("top_makes", cfg.Ingest.TopMakes))

	return &DatasetService{
		logger:      logger,
		parser:      dataprocessing.NewParser(logger),
		aggregator:  dataprocessing.NewAggregator(logger, dataprocessing.AggregatorConfig{TopMakes: cfg.Ingest.TopMakes}),
		validate:    validator.New(),
		maxDatasets: cfg.Ingest.MaxDatasets,
		datasets:    make(map[string]*Dataset),
	}
}

// Ingest parses and cleans one uploaded file and stores the snapshot.
func (s *DatasetService) Ingest(ctx context.Context, opts IngestOptions, r io.Reader) (*Dataset, error) {
	opts.Format = strings.ToLower(strings.TrimSpace(opts.Format))

	if err := s.validate.Struct(opts); err != nil {
		metrics.UploadsTotal.WithLabelValues(opts.Format, "rejected").Inc()
		return nil, fmt.Errorf("invalid ingest options: %w", err)
	}

	var (
		records []domain.PriceRecord
		stats   dataprocessing.ParseStats
		err     error
	)
	switch opts.Format {
	case "xlsx":
		records, stats, err = s.parser.ParseXLSX(ctx, r)
	default:
		records, stats, err = s.parser.ParseCSV(ctx, r)
	}
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(opts.Format, "failed").Inc()
		s.logger.ErrorContext(ctx, "ingest failed",
			slog.String("name", opts.Name),
			slog.String("format", opts.Format),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("ingest %s: %w", opts.Name, err)
	}

	dataset := &Dataset{
		Meta: domain.DatasetMeta{
			ID:         uuid.NewString(),
			Name:       opts.Name,
			RowCount:   len(records),
			UploadedAt: time.Now().UTC(),
		},
		Records:   records,
		Stats:     stats,
		Dashboard: s.aggregator.Build(ctx, records),
	}

	s.store(dataset)
	s.observeIngest(opts.Format, stats)

	s.logger.InfoContext(ctx, "dataset ingested",
		slog.String("dataset_id", dataset.Meta.ID),
		slog.String("name", opts.Name),
		slog.Int("rows_kept", stats.RowsKept),
		slog.Int("rows_dropped", stats.Dropped()))

	return dataset, nil
}

// store inserts the dataset, evicting the oldest one when the bound
// is exceeded.
func (s *DatasetService) store(dataset *Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.datasets[dataset.Meta.ID] = dataset
	s.order = append(s.order, dataset.Meta.ID)

	for len(s.order) > s.maxDatasets {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.datasets, oldest)
		s.logger.Info("evicted oldest dataset", slog.String("dataset_id", oldest))
	}

	metrics.DatasetsActive.Set(float64(len(s.datasets)))
}

// observeIngest records the ingest counters.
func (s *DatasetService) observeIngest(format string, stats dataprocessing.ParseStats) {
	metrics.UploadsTotal.WithLabelValues(format, "ok").Inc()
	metrics.RowsKeptTotal.Add(float64(stats.RowsKept))
	metrics.RowsDroppedTotal.WithLabelValues("short_row").Add(float64(stats.DroppedShortRow))
	metrics.RowsDroppedTotal.WithLabelValues("missing_make").Add(float64(stats.DroppedMissingMake))
	metrics.RowsDroppedTotal.WithLabelValues("missing_price").Add(float64(stats.DroppedMissingPrice))
	metrics.RowsDroppedTotal.WithLabelValues("bad_year").Add(float64(stats.DroppedBadYear))
}

// List returns metadata for all held datasets, newest first.
func (s *DatasetService) List(ctx context.Context) []domain.DatasetMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metas := make([]domain.DatasetMeta, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if dataset, ok := s.datasets[s.order[i]]; ok {
			metas = append(metas, dataset.Meta)
		}
	}

	return metas
}

// Get returns one dataset by id.
func (s *DatasetService) Get(ctx context.Context, id string) (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dataset, ok := s.datasets[id]
	if !ok {
		return nil, fmt.Errorf("dataset %s: %w", id, ErrDatasetNotFound)
	}

	return dataset, nil
}

// Dashboard returns the precomputed dashboard for one dataset.
func (s *DatasetService) Dashboard(ctx context.Context, id string) (domain.Dashboard, error) {
	dataset, err := s.Get(ctx, id)
	if err != nil {
		return domain.Dashboard{}, err
	}
	return dataset.Dashboard, nil
}

// Records returns a page of cleaned records plus the total count.
// A non-positive limit returns everything from offset.
func (s *DatasetService) Records(ctx context.Context, id string, limit, offset int) ([]domain.PriceRecord, int, error) {
	dataset, err := s.Get(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	total := len(dataset.Records)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}

	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	return dataset.Records[offset:end], total, nil
}

// Delete removes one dataset.
func (s *DatasetService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.datasets[id]; !ok {
		return fmt.Errorf("dataset %s: %w", id, ErrDatasetNotFound)
	}

	delete(s.datasets, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	metrics.DatasetsActive.Set(float64(len(s.datasets)))
	s.logger.InfoContext(ctx, "dataset deleted", slog.String("dataset_id", id))

	return nil
}

// PageFromQuery parses limit/offset query values with defaults.
func PageFromQuery(limitRaw, offsetRaw string, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(limitRaw); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(offsetRaw); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
