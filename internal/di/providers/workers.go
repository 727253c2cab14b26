package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/catalog-resolver/internal/config"
	"github.com/listenupapp/catalog-resolver/internal/logger"
	"github.com/listenupapp/catalog-resolver/internal/service"
	"github.com/listenupapp/catalog-resolver/internal/worker"
)

// AnalysisWorkerHandle wraps the analysis worker with shutdown capability.
type AnalysisWorkerHandle struct {
	*worker.AnalysisWorker
}

// Shutdown implements do.Shutdownable.
func (h *AnalysisWorkerHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideAnalysisWorker provides the background analysis worker.
func ProvideAnalysisWorker(i do.Injector) (*AnalysisWorkerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	books := do.MustInvoke[*service.BookService](i)
	log := do.MustInvoke[*logger.Logger](i)

	w := worker.NewAnalysisWorker(books, worker.Config{
		Concurrency: cfg.Worker.Concurrency,
		QueueSize:   cfg.Worker.QueueSize,
	}, log.Logger)
	w.Start()

	log.Info("Analysis worker started",
		"concurrency", cfg.Worker.Concurrency,
		"queue_size", cfg.Worker.QueueSize,
	)

	return &AnalysisWorkerHandle{AnalysisWorker: w}, nil
}
