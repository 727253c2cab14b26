// Package main seeds a catalog database with canonical entities and a few
// sample books so the API has something to resolve against.
//
// Usage:
//
//	DB_PATH=~/CatalogResolver/data/catalog.db go run ./cmd/seed
//	go run ./cmd/seed -db ./catalog.db -books=false
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/listenupapp/catalog-resolver/internal/association"
	"github.com/listenupapp/catalog-resolver/internal/domain"
	domainerrors "github.com/listenupapp/catalog-resolver/internal/errors"
	"github.com/listenupapp/catalog-resolver/internal/entitycache"
	"github.com/listenupapp/catalog-resolver/internal/logger"
	"github.com/listenupapp/catalog-resolver/internal/matcher"
	"github.com/listenupapp/catalog-resolver/internal/resolver"
	"github.com/listenupapp/catalog-resolver/internal/service"
	"github.com/listenupapp/catalog-resolver/internal/store/sqlite"
)

type seedEntity struct {
	name string
	tier string
}

//nolint:gochecknoglobals // Static seed data
var seedEntities = map[domain.EntityType][]seedEntity{
	domain.EntityAuthor: {
		{name: "Jane Austen"},
		{name: "Charles Dickens"},
		{name: "George Eliot"},
		{name: "Thomas Hardy"},
		{name: "Elizabeth Gaskell"},
	},
	domain.EntityPublisher: {
		{name: "Macmillan and Co.", tier: "TIER_1"},
		{name: "Chapman & Hall", tier: "TIER_1"},
		{name: "Smith, Elder & Co.", tier: "TIER_2"},
		{name: "Chatto & Windus", tier: "TIER_2"},
		{name: "John Murray"},
	},
	domain.EntityBinder: {
		{name: "Zaehnsdorf", tier: "TIER_1"},
		{name: "Riviere & Son", tier: "TIER_1"},
		{name: "Sangorski & Sutcliffe", tier: "TIER_1"},
		{name: "Bayntun (of Bath)", tier: "TIER_2"},
	},
}

type seedBook struct {
	title     string
	author    string
	publisher string
	binder    string
}

//nolint:gochecknoglobals // Static seed data
var seedBooks = []seedBook{
	{"Emma", "Jane Austen", "John Murray", "Zaehnsdorf"},
	{"Great Expectations", "Charles Dickens", "Chapman and Hall", "Riviere and Son"},
	{"Middlemarch", "George Eliot", "", "Sangorski & Sutcliffe Ltd."},
	{"Far from the Madding Crowd", "Thomas Hardy", "Smith Elder and Co", "Bayntun"},
	{"Cranford", "Mrs. Elizabeth Gaskell", "Chapman & Hall Limited", ""},
}

func main() {
	defaultPath := os.Getenv("DB_PATH")
	if defaultPath == "" {
		home, _ := os.UserHomeDir()
		defaultPath = filepath.Join(home, "CatalogResolver", "data", "catalog.db")
	}

	dbPath := flag.String("db", defaultPath, "Path to the SQLite database")
	withBooks := flag.Bool("books", true, "Also create sample books and associate them")
	flag.Parse()

	log := logger.New(logger.Config{Environment: "development", Level: logger.ParseLevel("info")})

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
		log.Fatal("Failed to create data directory", "error", err)
	}

	st, err := sqlite.Open(*dbPath, log.Logger)
	if err != nil {
		log.Fatal("Failed to open store", "path", *dbPath, "error", err)
	}
	defer st.Close()

	cache := entitycache.New(st, entitycache.Options{}, log.Logger)
	m := matcher.New(cache, matcher.DefaultThresholds(), matcher.DefaultMaxResults)
	v := resolver.NewValidator(m, resolver.ModeEnforce, log.Logger)
	entities := service.NewEntityService(st, cache, m, v, log.Logger)
	books := service.NewBookService(st, association.New(v, log.Logger), log.Logger)

	ctx := context.Background()

	created, skipped := 0, 0
	for _, t := range domain.EntityTypes() {
		for _, e := range seedEntities[t] {
			_, err := entities.Create(ctx, service.CreateEntityRequest{Type: t, Name: e.name, Tier: e.tier, Force: true})
			switch {
			case domainerrors.Is(err, domainerrors.ErrAlreadyExists):
				skipped++
			case err != nil:
				log.Fatal("Failed to create entity", "type", t, "name", e.name, "error", err)
			default:
				created++
			}
		}
	}
	fmt.Printf("Entities: %d created, %d already present\n", created, skipped)

	if !*withBooks {
		return
	}

	for _, sb := range seedBooks {
		book, err := books.Create(ctx, service.CreateBookRequest{Title: sb.title})
		if err != nil {
			log.Fatal("Failed to create book", "title", sb.title, "error", err)
		}

		var slots []association.Slot
		for t, name := range map[domain.EntityType]string{
			domain.EntityAuthor:    sb.author,
			domain.EntityPublisher: sb.publisher,
			domain.EntityBinder:    sb.binder,
		} {
			if name != "" {
				slots = append(slots, association.Slot{Type: t, Name: name})
			}
		}

		out, err := books.AssociateEntities(ctx, book.ID, slots, association.Options{})
		if err != nil {
			fmt.Printf("  %-28s %s  association blocked: %v\n", sb.title, book.ID, err)
			continue
		}
		fmt.Printf("  %-28s %s  %d slots, %d warnings\n", sb.title, book.ID, len(out.Result.Slots), len(out.Result.Warnings))
	}
}
