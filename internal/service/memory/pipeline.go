package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/config"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/conv"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/log"
)

// finalizeTimeout bounds the summary step after the run deadline expired.
const finalizeTimeout = 30 * time.Second

// persistTimeout bounds the writes of one extracted chunk.
const persistTimeout = 30 * time.Second

type RunRequest struct {
	UserID    string         `validate:"required"`
	SessionID string         `validate:"required"`
	Messages  []core.Message `validate:"-"`
	// MaxChunks 0 selects the adaptive profile.
	MaxChunks int `validate:"min=0"`
}

type RunResult struct {
	Entries         []core.Entry      `json:"entries"`
	Context         *core.UserContext `json:"context,omitempty"`
	Summary         string            `json:"summary"`
	CandidateCount  int               `json:"candidate_count"`
	ChunksTotal     int               `json:"chunks_total"`
	ChunksProcessed int               `json:"chunks_processed"`
	// ChunksFailed > 0 means the oracle degraded the run, as opposed to a
	// conversation with nothing worth remembering.
	ChunksFailed int  `json:"chunks_failed"`
	Interrupted  bool `json:"interrupted"`
}

type PipelineDeps struct {
	Chunker    *Chunker
	Extractor  *Extractor
	Aggregator *Aggregator
	Locker     core.UserLocker
	Metrics    *Metrics
	// Schemas are bootstrapped once before the first run.
	Schemas []core.SchemaInitializer
}

// Pipeline runs one extraction per call: chunk, prioritize, extract chunk
// by chunk, store and fold, then summarize.
type Pipeline struct {
	cfg        *config.ExtractionConfig
	chunker    *Chunker
	extractor  *Extractor
	aggregator *Aggregator
	locker     core.UserLocker
	metrics    *Metrics
	schemas    []core.SchemaInitializer

	schemaMu    sync.Mutex
	schemaReady bool
}

func NewPipeline(cfg *config.ExtractionConfig, deps PipelineDeps) *Pipeline {
	if deps.Locker == nil {
		deps.Locker = NewKeyedMutex()
	}
	if deps.Chunker == nil {
		deps.Chunker = NewChunker(nil)
	}
	return &Pipeline{
		cfg:        cfg,
		chunker:    deps.Chunker,
		extractor:  deps.Extractor,
		aggregator: deps.Aggregator,
		locker:     deps.Locker,
		metrics:    deps.Metrics,
		schemas:    deps.Schemas,
	}
}

func (p *Pipeline) Aggregator() *Aggregator {
	return p.aggregator
}

// Run extracts memories from one transcript. Only validation, locking and
// schema bootstrap fail the run; oracle and storage problems are counted
// in the result and logged.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if err := validate.Struct(req); err != nil {
		p.metrics.observeRun(OutcomeRejected)
		return nil, fmt.Errorf("invalid run request: %w", err)
	}

	logger := log.FromCtx(ctx).With().
		Str("user_id", req.UserID).
		Str("session_id", req.SessionID).
		Logger()
	ctx = logger.WithContext(ctx)

	unlock, err := p.locker.Lock(ctx, req.UserID)
	if err != nil {
		p.metrics.observeRun(OutcomeRejected)
		return nil, fmt.Errorf("lock user: %w", err)
	}
	defer unlock()

	if err := p.ensureSchema(ctx); err != nil {
		p.metrics.observeRun(OutcomeRejected)
		return nil, err
	}

	runCtx := ctx
	if p.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.cfg.RunTimeout)
		defer cancel()
	}

	chunks := p.selectChunks(p.prepare(req.Messages), req.MaxChunks)
	result := &RunResult{ChunksTotal: len(chunks)}
	logger.Info().Int("messages", len(req.Messages)).Int("chunks", len(chunks)).Msg("extraction run started")

	for _, chunk := range chunks {
		if runCtx.Err() != nil {
			result.Interrupted = true
			break
		}

		candidates, err := p.extractor.ExtractFromChunk(runCtx, chunk)
		if err != nil {
			if runCtx.Err() != nil {
				result.Interrupted = true
				break
			}
			result.ChunksFailed++
			p.observeChunkFailure(err)
			logger.Warn().Err(err).Str("chunk_id", chunk.ID).Msg("chunk skipped")
			continue
		}
		result.ChunksProcessed++
		p.metrics.observeChunk(OutcomeOK)
		p.metrics.observeCandidates(candidates)
		result.CandidateCount += len(candidates)

		result.Entries = append(result.Entries, p.persistChunk(ctx, req, candidates)...)
	}

	// the run deadline may be gone; the summary still reflects what was stored
	finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	uc, err := p.aggregator.GetUserContext(finalCtx, req.UserID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to reconstruct user context")
	} else {
		result.Context = uc
		result.Summary = p.aggregator.renderSummary(uc)
	}

	p.metrics.observeRun(runOutcome(result))
	logger.Info().
		Int("entries", len(result.Entries)).
		Int("candidates", result.CandidateCount).
		Int("chunks_processed", result.ChunksProcessed).
		Int("chunks_failed", result.ChunksFailed).
		Bool("interrupted", result.Interrupted).
		Msg("extraction run finished")

	return result, nil
}

// persistChunk stores, folds and indexes one extracted chunk. It runs
// detached from the run deadline: once the oracle has answered, its
// candidates are kept even if the run is cancelled meanwhile.
func (p *Pipeline) persistChunk(ctx context.Context, req RunRequest, candidates []core.Candidate) []core.Entry {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	entries := p.aggregator.StoreMemoryEntries(ctx, req.UserID, req.SessionID, candidates)
	_ = p.aggregator.UpdateUserContext(ctx, req.UserID, entries)
	p.aggregator.IndexCandidates(ctx, req.UserID, req.SessionID, entryCandidates(entries))
	return entries
}

func (p *Pipeline) ensureSchema(ctx context.Context) error {
	p.schemaMu.Lock()
	defer p.schemaMu.Unlock()
	if p.schemaReady {
		return nil
	}
	for _, s := range p.schemas {
		if err := s.EnsureSchema(ctx); err != nil {
			return &core.SchemaInitError{Cause: err}
		}
	}
	p.schemaReady = true
	return nil
}

func (p *Pipeline) prepare(messages []core.Message) []core.Message {
	msgs := core.FilterConversation(messages)
	if !p.cfg.NormalizeMarkup {
		return msgs
	}
	out := make([]core.Message, 0, len(msgs))
	for _, m := range msgs {
		m.Content = conv.NormalizeMessage(m.Content)
		out = append(out, m)
	}
	return out
}

// selectChunks returns chunks in processing order.
func (p *Pipeline) selectChunks(msgs []core.Message, maxChunks int) []core.Chunk {
	if maxChunks == 0 {
		maxChunks = p.cfg.MaxChunks
	}
	if maxChunks == 0 {
		return PrioritizeChunks(p.chunker.AdaptiveChunk(msgs))
	}
	return p.chunker.GetOptimalChunks(msgs, maxChunks, DefaultStrategy())
}

func (p *Pipeline) observeChunkFailure(err error) {
	var parseErr *core.ExtractionParseError
	if errors.As(err, &parseErr) {
		p.metrics.observeChunk(OutcomeParseError)
		return
	}
	p.metrics.observeChunk(OutcomeOracleError)
}

func runOutcome(r *RunResult) string {
	switch {
	case r.Interrupted:
		return OutcomeInterrupted
	case r.ChunksFailed > 0:
		return OutcomeDegraded
	default:
		return OutcomeOK
	}
}

func entryCandidates(entries []core.Entry) []core.Candidate {
	out := make([]core.Candidate, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Candidate)
	}
	return out
}
