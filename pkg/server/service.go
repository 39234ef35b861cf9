package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mikeboe/scholar-agent/pkg/config"
	"github.com/mikeboe/scholar-agent/pkg/database"
	"github.com/mikeboe/scholar-agent/pkg/library"
	"github.com/mikeboe/scholar-agent/pkg/research"
	"github.com/mikeboe/scholar-agent/pkg/search"
)

// Service owns research jobs: creation, background execution and
// persistence of results, progress and logs.
type Service struct {
	DB      *database.PostgresDB
	Cfg     *config.Config
	LLM     research.CompletionClient
	Search  search.Client
	Library *library.Store // optional, nil disables indexing
}

func NewService(db *database.PostgresDB, cfg *config.Config, llm research.CompletionClient, searchClient search.Client, lib *library.Store) *Service {
	return &Service{
		DB:      db,
		Cfg:     cfg,
		LLM:     llm,
		Search:  searchClient,
		Library: lib,
	}
}

type Job struct {
	ID        uuid.UUID       `json:"id"`
	Topic     string          `json:"topic"`
	Status    string          `json:"status"`
	Subtopics json.RawMessage `json:"subtopics,omitempty"`
	Findings  json.RawMessage `json:"findings,omitempty"`
	Sources   json.RawMessage `json:"sources,omitempty"`
	Progress  json.RawMessage `json:"progress,omitempty"`
	Report    *string         `json:"report,omitempty"`
	Error     *string         `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type CreateJobRequest struct {
	Topic string `json:"topic" binding:"required"`
}

func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	jobID := uuid.New()
	query := `
		INSERT INTO research_jobs (id, topic, status)
		VALUES ($1, $2, 'pending')
		RETURNING id, topic, status, created_at, updated_at
	`

	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, jobID, req.Topic).Scan(
		&job.ID, &job.Topic, &job.Status, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	// Runs detached from the request context: a job is not cancellable
	// once started.
	go s.runWorker(job.ID, req.Topic)

	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	query := `
		SELECT id, topic, status, subtopics, findings, sources, progress, report, error, created_at, updated_at
		FROM research_jobs
		WHERE id = $1
	`
	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Topic, &job.Status, &job.Subtopics, &job.Findings,
		&job.Sources, &job.Progress, &job.Report, &job.Error, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	query := `
		SELECT id, topic, status, progress, report, error, created_at, updated_at
		FROM research_jobs
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.Topic, &job.Status, &job.Progress, &job.Report, &job.Error, &job.CreatedAt, &job.UpdatedAt); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE job_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

func (s *Service) runWorker(jobID uuid.UUID, topic string) {
	ctx := context.Background()

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'running', updated_at = NOW() WHERE id = $1", jobID)

	dbLogger := slog.New(NewDBLogHandler(s.DB, jobID))

	pipeline := research.NewPipeline(
		research.NewTopicSplitter(s.LLM),
		research.NewResearcher(s.LLM, s.Search, s.Cfg.SearchResults, s.Cfg.TopSources),
		research.NewSynthesizer(s.LLM),
	)
	pipeline.Logger = dbLogger
	pipeline.MaxWorkers = s.Cfg.MaxWorkers

	onProgress := func(message string, completed, total float64) {
		dbLogger.Info(message, "completed", completed, "total", total)

		progressJSON, err := json.Marshal(map[string]interface{}{
			"message":   message,
			"completed": completed,
			"total":     total,
		})
		if err != nil {
			return
		}
		_, err = s.DB.Pool.Exec(context.Background(),
			"UPDATE research_jobs SET progress = $2, updated_at = NOW() WHERE id = $1",
			jobID, progressJSON)
		if err != nil {
			dbLogger.Error("Failed to save progress", "error", err)
		}
	}

	result, err := pipeline.Run(ctx, topic, onProgress)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("Research failed: %v", err))
		return
	}

	subtopicsJSON, _ := json.Marshal(result.Subtopics)
	findingsJSON, _ := json.Marshal(result.Findings)
	sourcesJSON, _ := json.Marshal(result.Sources)

	_, err = s.DB.Pool.Exec(ctx, `
		UPDATE research_jobs
		SET status = 'completed', report = $2, subtopics = $3, findings = $4, sources = $5, updated_at = NOW()
		WHERE id = $1
	`, jobID, result.Report, subtopicsJSON, findingsJSON, sourcesJSON)
	if err != nil {
		dbLogger.Error("Failed to save final report to DB", "error", err)
	}

	// Library indexing is best effort and never fails the job.
	if s.Library != nil {
		if err := s.Library.IndexRun(ctx, result); err != nil {
			dbLogger.Error("Failed to index run into library", "error", err)
		}
	}
}

func (s *Service) failJob(ctx context.Context, jobID uuid.UUID, reason string) {
	dbLogger := slog.New(NewDBLogHandler(s.DB, jobID))
	dbLogger.Error(reason)

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'failed', error = $2, updated_at = NOW() WHERE id = $1", jobID, reason)
}
