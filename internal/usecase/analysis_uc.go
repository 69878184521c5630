package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"analysis-gateway/internal/domain"
	"analysis-gateway/internal/domain/model"
	"analysis-gateway/internal/infra/logging"
	"analysis-gateway/internal/infra/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Compile-time check
var _ AnalysisUseCase = (*analysisUC)(nil)

// AnalysisUseCase is the batch dispatcher behind POST /analyze.
type AnalysisUseCase interface {
	Dispatch(ctx context.Context, userID int64, req model.BatchRequest) (*model.BatchResult, error)
}

// JobRunner runs one analysis job to completion. *Orchestrator is the production runner.
type JobRunner interface {
	Run(ctx context.Context, t model.AnalysisType, text string) (string, error)
}

type analysisUC struct {
	runner JobRunner
	quota  QuotaUseCase
	types  map[model.AnalysisType]struct{}
	log    *zerolog.Logger
}

func NewAnalysisUseCase(runner JobRunner, quota QuotaUseCase, types []string, logger *zerolog.Logger) *analysisUC {
	set := make(map[model.AnalysisType]struct{}, len(types))
	for _, t := range types {
		set[model.NormalizeType(t)] = struct{}{}
	}
	return &analysisUC{runner: runner, quota: quota, types: set, log: logger}
}

// Dispatch validates the batch, reserves one request per listed type and runs
// the distinct types concurrently. The first failing job fails the whole batch;
// reserved requests are not refunded.
func (a *analysisUC) Dispatch(ctx context.Context, userID int64, req model.BatchRequest) (*model.BatchResult, error) {
	defer logging.TraceDuration(a.log, "AnalysisUC.Dispatch")()

	if err := a.validate(req); err != nil {
		metrics.IncBatch("invalid")
		return nil, err
	}

	snapshot, err := a.quota.Reserve(ctx, userID, len(req.Types))
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			metrics.IncBatch("quota")
		} else {
			metrics.IncBatch("failed")
		}
		return nil, err
	}

	batchID := ulid.Make().String()
	ctx = logging.WithBatchID(ctx, batchID)
	log := logging.With(ctx, a.log)

	text := FormatInput(req)

	// one job per distinct type; remember the first caller spelling for errors
	var distinct []model.AnalysisType
	origin := make(map[model.AnalysisType]string, len(req.Types))
	for _, raw := range req.Types {
		t := model.NormalizeType(raw)
		if _, seen := origin[t]; seen {
			continue
		}
		origin[t] = raw
		distinct = append(distinct, t)
	}
	log.Info().Int("jobs", len(distinct)).Int("charged", len(req.Types)).Msg("dispatching analysis batch")

	var (
		mu      sync.Mutex
		outputs = make(map[model.AnalysisType]string, len(distinct))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range distinct {
		t := t
		g.Go(func() error {
			out, err := a.runner.Run(gctx, t, text)
			if err != nil {
				return &domain.BatchError{Type: origin[t], Err: err}
			}
			mu.Lock()
			outputs[t] = out
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.IncBatch("failed")
		log.Warn().Err(err).Msg("analysis batch failed")
		return nil, err
	}

	results := make(map[string]string, len(req.Types))
	for _, raw := range req.Types {
		results[raw] = outputs[model.NormalizeType(raw)]
	}
	metrics.IncBatch("ok")
	return &model.BatchResult{BatchID: batchID, Results: results, Quota: snapshot}, nil
}

func (a *analysisUC) validate(req model.BatchRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("%w: text is required", domain.ErrInvalidRequest)
	}
	if len(req.Types) == 0 {
		return fmt.Errorf("%w: at least one analysis type is required", domain.ErrInvalidRequest)
	}
	var invalid []string
	for _, raw := range req.Types {
		if _, ok := a.types[model.NormalizeType(raw)]; !ok {
			invalid = append(invalid, raw)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("%w: invalid analysis types: %s", domain.ErrInvalidRequest, strings.Join(invalid, ", "))
	}
	return nil
}

// FormatInput prefixes the text with the style and gender hints the assistants
// expect. "default" and empty values are omitted.
func FormatInput(req model.BatchRequest) string {
	var b strings.Builder
	if s := strings.TrimSpace(req.Style); s != "" && !strings.EqualFold(s, "default") {
		b.WriteString("Style: " + s + "\n")
	}
	if g := strings.TrimSpace(req.Gender); g != "" && !strings.EqualFold(g, "default") {
		b.WriteString("Gender: " + g + "\n")
	}
	if b.Len() == 0 {
		return req.Text
	}
	b.WriteString("\n")
	b.WriteString(req.Text)
	return b.String()
}
