// Package importer runs the bulk listing import: city resolution, optional
// batch city creation, listing assembly, the contact filter, and the
// transactional write.
package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/directory-cli/internal/cityname"
	"github.com/sells-group/directory-cli/internal/config"
	"github.com/sells-group/directory-cli/internal/ingest"
	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/resilience"
	"github.com/sells-group/directory-cli/internal/store"
)

var (
	// ErrMissingStateID is returned when the request names no state.
	ErrMissingStateID = errors.New("importer: state id is required")
	// ErrMissingFile is returned when the request carries no file content.
	ErrMissingFile = errors.New("importer: file is required")
	// ErrStateNotFound is returned when the state id does not exist.
	ErrStateNotFound = errors.New("importer: state not found")
)

// Request describes one import run. Rows, when set, are used as-is;
// otherwise Data is parsed according to Filename.
type Request struct {
	StateID    string
	Filename   string
	Data       []byte
	Rows       []ingest.Row
	AutoCreate bool
}

// Report is the result of a successful run.
type Report struct {
	Message     string             `json:"message" yaml:"message"`
	Stats       *model.ImportStats `json:"stats" yaml:"stats"`
	StateName   string             `json:"state_name" yaml:"state_name"`
	TotalCities int                `json:"total_cities" yaml:"total_cities"`
}

// Importer runs imports against a store.
type Importer struct {
	cfg   config.ImportConfig
	store store.Store
	rules *cityname.Rules
	retry resilience.RetryConfig
}

// New creates an Importer. A nil rules value uses cityname.DefaultRules.
func New(cfg config.ImportConfig, st store.Store, rules *cityname.Rules) *Importer {
	if rules == nil {
		rules = cityname.DefaultRules()
	}
	return &Importer{cfg: cfg, store: st, rules: rules, retry: resilience.DefaultRetryConfig()}
}

// resolved is a row that passed validation and city resolution.
type resolved struct {
	row  ingest.Row
	city string
}

// Run executes one import. Input, lookup, parse and persistence failures
// abort the run; row problems are recorded in the report.
func (im *Importer) Run(ctx context.Context, req Request) (*Report, error) {
	if strings.TrimSpace(req.StateID) == "" {
		return nil, ErrMissingStateID
	}
	if req.Rows == nil && len(req.Data) == 0 {
		return nil, ErrMissingFile
	}

	state, err := im.store.GetState(ctx, req.StateID)
	if err != nil {
		return nil, eris.Wrap(err, "importer: load state")
	}
	if state == nil {
		return nil, ErrStateNotFound
	}

	rows := req.Rows
	if rows == nil {
		rows, err = ingest.Parse(req.Filename, req.Data)
		if err != nil {
			return nil, err
		}
	}

	log := zap.L().With(zap.String("state", state.Name), zap.Bool("auto_create", req.AutoCreate))
	log.Info("importer: starting import", zap.Int("rows", len(rows)))
	start := time.Now()

	cities, err := im.store.ListCities(ctx, state.ID)
	if err != nil {
		return nil, eris.Wrap(err, "importer: load cities")
	}
	resolver := NewResolver(im.rules, cities)

	stats := model.NewImportStats(im.cfg.MaxErrors)
	accepted := im.scan(rows, state, resolver, req.AutoCreate, stats)

	var out txOutcome
	retry := im.retry
	retry.OnRetry = resilience.RetryLogger("import transaction")
	err = resilience.Do(ctx, retry, func(ctx context.Context) error {
		out = txOutcome{}
		return im.store.InTx(ctx, func(w store.Writer) error {
			return im.write(ctx, w, state.ID, resolver, accepted, &out)
		})
	})
	if err != nil {
		log.Error("importer: import failed", zap.Error(err))
		return nil, err
	}
	out.apply(stats)
	if stats.CitiesCreated > 0 {
		log.Info("importer: created cities", zap.Int("count", stats.CitiesCreated))
	}

	log.Info("importer: import complete",
		zap.Int("processed", stats.Processed),
		zap.Int("imported", stats.Imported),
		zap.Int("skipped", stats.Skipped),
		zap.Int("filtered", stats.Filtered),
		zap.Int("cities_created", stats.CitiesCreated),
		zap.Int("cities_matched", stats.CitiesMatched),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Report{
		Message:     fmt.Sprintf("Imported %d of %d listings into %s", stats.Imported, stats.Processed, state.Name),
		Stats:       stats,
		StateName:   state.Name,
		TotalCities: resolver.Known(),
	}, nil
}

// txOutcome holds the counts from one transaction attempt. It is applied
// to the run stats only after a commit.
type txOutcome struct {
	created  int
	imported int
	filtered int
	missing  []resolved
}

func (o txOutcome) apply(stats *model.ImportStats) {
	stats.CitiesCreated = o.created
	stats.Imported = o.imported
	stats.Filtered = o.filtered
	for _, m := range o.missing {
		stats.Skipped++
		stats.AddError(m.row.Line, "city %q was not created", m.city)
	}
}

// write creates pending cities and inserts the assembled listings.
func (im *Importer) write(ctx context.Context, w store.Writer, stateID string, resolver *Resolver, accepted []resolved, out *txOutcome) error {
	if pending := resolver.Pending(); len(pending) > 0 {
		created, err := w.UpsertCities(ctx, stateID, pending)
		if err != nil {
			return eris.Wrap(err, "importer: create cities")
		}
		out.created = len(created)
		resolver.Merge(created)
	}

	listings := make([]model.Listing, 0, len(accepted))
	for _, a := range accepted {
		cityID, ok := resolver.Lookup(a.city)
		if !ok {
			out.missing = append(out.missing, a)
			continue
		}
		l := Assemble(a.row, cityID)
		if !KeepListing(l) {
			out.filtered++
			continue
		}
		listings = append(listings, l)
	}

	n, err := w.InsertListings(ctx, listings)
	if err != nil {
		return eris.Wrap(err, "importer: insert listings")
	}
	out.imported = int(n)
	return nil
}

// scan validates rows in file order and resolves each city. Rows that
// cannot be placed are counted as skipped.
func (im *Importer) scan(rows []ingest.Row, state *model.State, resolver *Resolver, autoCreate bool, stats *model.ImportStats) []resolved {
	accepted := make([]resolved, 0, len(rows))
	for _, row := range rows {
		stats.Processed++

		city, reason := im.check(row, state, resolver, autoCreate, stats)
		if reason != "" {
			stats.Skipped++
			stats.AddError(row.Line, "%s", reason)
			zap.L().Debug("importer: skipped row", zap.Int("row", row.Line), zap.String("reason", reason))
			continue
		}
		accepted = append(accepted, resolved{row: row, city: city})
	}
	return accepted
}

// check returns the resolved city name, or the reason the row is skipped.
func (im *Importer) check(row ingest.Row, state *model.State, resolver *Resolver, autoCreate bool, stats *model.ImportStats) (city, reason string) {
	if strings.TrimSpace(row.Business) == "" {
		keys := append([]string(nil), row.Keys()...)
		sort.Strings(keys)
		return "", fmt.Sprintf("missing business name (available fields: %s)", strings.Join(keys, ", "))
	}
	if strings.TrimSpace(row.Address) == "" {
		return "", "missing address"
	}

	city, err := im.rules.Resolve(row.Address)
	if err != nil {
		var invalid *cityname.InvalidNameError
		if errors.As(err, &invalid) {
			return "", invalid.Error()
		}
		return "", fmt.Sprintf("could not extract city from address %q", row.Address)
	}

	switch resolver.Resolve(city, autoCreate) {
	case OutcomeMatched:
		stats.CitiesMatched++
	case OutcomeRejected:
		return "", fmt.Sprintf("city %q not found in %s (auto-create disabled)", city, state.Name)
	}
	return city, ""
}
