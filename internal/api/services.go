package api

import (
	"github.com/listenupapp/catalog-resolver/internal/service"
	"github.com/listenupapp/catalog-resolver/internal/store"
	"github.com/listenupapp/catalog-resolver/internal/worker"
)

// Services groups the dependencies used by the API server.
type Services struct {
	Store    store.Store            // Health checks only
	Entities *service.EntityService // Resolution, search, entity maintenance
	Books    *service.BookService   // Books and entity association
	Analysis *worker.AnalysisWorker // Optional; nil disables the analysis endpoint
}
