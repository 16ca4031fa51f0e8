package handlers

import (
	"time"

	"autogallery/internal/database"
	"autogallery/internal/filesystem"
	"autogallery/internal/listing"
	"autogallery/internal/startup"
	"autogallery/internal/sweep"
)

// Handlers serves one gallery root: its listings, source files, cached
// thumbnails and sweep controls.
type Handlers struct {
	config    *startup.Config
	lister    *listing.Assembler
	scheduler *sweep.Scheduler
	db        *database.Database // nil when the ledger is disabled
	root      sweep.Root
	retry     filesystem.RetryConfig
	startTime time.Time
}

// New creates the handlers. db may be nil.
func New(config *startup.Config, lister *listing.Assembler, scheduler *sweep.Scheduler, db *database.Database, root sweep.Root) *Handlers {
	return &Handlers{
		config:    config,
		lister:    lister,
		scheduler: scheduler,
		db:        db,
		root:      root,
		retry:     filesystem.DefaultRetryConfig(),
		startTime: time.Now(),
	}
}

// StartSweeps starts the periodic sweep loop for the root. It is meant to
// be called from middleware.LazyStart.
func (h *Handlers) StartSweeps() {
	h.scheduler.Start(h.root)
}
