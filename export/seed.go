package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/ttab/elephant-export/postgres"
	"github.com/ttab/elephant-export/search"
)

// PeopleMappings is the OpenSearch mapping of a people index.
var PeopleMappings = json.RawMessage(`{
  "properties": {
    "id": {"type": "keyword"},
    "gender": {"type": "keyword"},
    "name": {"type": "text"},
    "city": {"type": "keyword"},
    "phone": {"type": "keyword"},
    "created": {"type": "date"}
  }
}`)

type SeedOptions struct {
	Logger *slog.Logger
	// Count is the number of people to create.
	Count int
	// Start is the creation time of the first person, defaults to now.
	Start     time.Time
	BatchSize int
	// RandomSeed for the generated names, cities and phone numbers.
	RandomSeed int64
	// OpenSearch is optional, if set the people will be indexed as well.
	OpenSearch      *opensearch.Client
	OpenSearchIndex string
}

// Seed replaces all people with generated dummy data. Every other person is
// female, and they are created one millisecond apart.
func Seed(ctx context.Context, db *pgxpool.Pool, opts SeedOptions) error {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}

	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}

	// Millisecond precision is the lowest common denominator of our
	// sources.
	start := opts.Start.Truncate(time.Millisecond)

	q := postgres.New(db)

	err := q.DeleteAllPeople(ctx)
	if err != nil {
		return fmt.Errorf("delete existing people: %w", err)
	}

	if opts.OpenSearch != nil {
		err := search.EnsureIndex(ctx, opts.OpenSearch,
			opts.OpenSearchIndex, PeopleMappings)
		if err != nil {
			return fmt.Errorf("ensure people index: %w", err)
		}
	}

	gen := newPersonGenerator(opts.RandomSeed)

	for offset := 0; offset < opts.Count; offset += opts.BatchSize {
		n := min(opts.BatchSize, opts.Count-offset)
		batch := make([]postgres.Person, n)

		for i := range batch {
			num := offset + i + 1

			batch[i], err = gen.Person(num,
				start.Add(time.Duration(num)*time.Millisecond))
			if err != nil {
				return fmt.Errorf("generate person %d: %w", num, err)
			}
		}

		err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
			tq := q.WithTx(tx)

			for _, p := range batch {
				err := tq.InsertPerson(ctx, postgres.InsertPersonParams(p))
				if err != nil {
					return fmt.Errorf("insert person %s: %w", p.ID, err)
				}
			}

			return nil
		})
		if err != nil {
			return fmt.Errorf("insert batch at %d: %w", offset, err)
		}

		if opts.OpenSearch != nil {
			err := search.BulkIndex(ctx, opts.OpenSearch,
				opts.OpenSearchIndex, batch,
				func(p postgres.Person) string {
					return p.ID
				})
			if err != nil {
				return fmt.Errorf("index batch at %d: %w", offset, err)
			}
		}

		if opts.Logger != nil {
			opts.Logger.DebugContext(ctx, "seeded people",
				"count", offset+n)
		}
	}

	return nil
}

var (
	femaleNames = []string{
		"Alice", "Astrid", "Elsa", "Freja", "Ingrid", "Maja", "Saga",
		"Signe", "Vera", "Wilma",
	}
	maleNames = []string{
		"Anton", "Axel", "Erik", "Gustav", "Hugo", "Isak", "Nils", "Olle",
		"Sixten", "Ture",
	}
	surnames = []string{
		"Andersson", "Berg", "Holm", "Johansson", "Karlsson", "Lind",
		"Lundqvist", "Nyström", "Sandberg", "Åkesson",
	}
	cities = []string{
		"Göteborg", "Kiruna", "Lund", "Malmö", "Stockholm", "Umeå",
		"Uppsala", "Visby", "Västerås", "Örebro",
	}
)

type personGenerator struct {
	rnd *rand.Rand
}

func newPersonGenerator(seed int64) *personGenerator {
	return &personGenerator{
		//nolint: gosec
		rnd: rand.New(rand.NewSource(seed)),
	}
}

func (g *personGenerator) pick(list []string) string {
	return list[g.rnd.Intn(len(list))]
}

// Person generates person number n. Odd numbers are male and even numbers
// female.
func (g *personGenerator) Person(n int, created time.Time) (postgres.Person, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return postgres.Person{}, fmt.Errorf("generate ID: %w", err)
	}

	gender, names := "M", maleNames
	if n%2 == 0 {
		gender, names = "F", femaleNames
	}

	return postgres.Person{
		ID:      id.String(),
		Gender:  gender,
		Name:    g.pick(names) + " " + g.pick(surnames),
		City:    g.pick(cities),
		Phone:   fmt.Sprintf("07%d-%03d %02d %02d", g.rnd.Intn(10), g.rnd.Intn(1000), g.rnd.Intn(100), g.rnd.Intn(100)),
		Created: created,
	}, nil
}
