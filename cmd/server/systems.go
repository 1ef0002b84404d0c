package main

import (
	"github.com/preclear-labs/preclear/internal/analyzer"
	"github.com/preclear-labs/preclear/internal/approvals"
	"github.com/preclear-labs/preclear/internal/compliance"
	"github.com/preclear-labs/preclear/internal/config"
	"github.com/preclear-labs/preclear/internal/documents"
	"github.com/preclear-labs/preclear/internal/events"
	"github.com/preclear-labs/preclear/internal/extraction"
	"github.com/preclear-labs/preclear/internal/infrastructure"
	"github.com/preclear-labs/preclear/internal/requests"
	"github.com/preclear-labs/preclear/internal/validation"
)

// Systems wires the domain modules over shared infrastructure.
type Systems struct {
	Events     events.Emitter
	Dataset    *compliance.Store
	Documents  documents.System
	Validation validation.System
	Approvals  approvals.System
	Requests   requests.System
}

func NewSystems(infra *infrastructure.Infrastructure, cfg *config.Config) *Systems {
	emitter := events.NewLogEmitter(infra.Logger)
	db := infra.Database.Connection()

	docs := documents.New(db, infra.Storage, infra.Logger)
	dataset := compliance.NewStore(infra.Logger)

	fields := analyzer.NewRetrying(
		analyzer.NewAgentExtractor(cfg.Agent, infra.Logger),
		cfg.Pipeline.RetryAttempts,
		cfg.Pipeline.RetryBackoffDuration(),
	)

	engine := validation.NewEngine(&validation.Runtime{
		Documents: docs,
		Extractor: extraction.New(),
		Fields:    fields,
		Dataset:   dataset,
		Results:   validation.NewResultStore(db, infra.Logger),
		Events:    emitter,
		Logger:    infra.Logger.With("system", "validation"),
		Workers:   cfg.Pipeline.Workers,
	})

	return &Systems{
		Events:     emitter,
		Dataset:    dataset,
		Documents:  docs,
		Validation: engine,
		Approvals:  approvals.New(db, emitter, infra.Logger),
		Requests:   requests.New(db, emitter, infra.Logger),
	}
}
