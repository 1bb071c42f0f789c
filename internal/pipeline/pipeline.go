// Package pipeline orchestrates a scan run: plan points for each zone,
// search, enrich, crawl menus, and persist incremental state.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sohogrid/menuscout/internal/discovery"
	"github.com/sohogrid/menuscout/internal/enrich"
	"github.com/sohogrid/menuscout/internal/export"
	"github.com/sohogrid/menuscout/internal/geo"
	"github.com/sohogrid/menuscout/internal/places"
	"github.com/sohogrid/menuscout/internal/progress"
	"github.com/sohogrid/menuscout/internal/storage"
)

// PlacesAPI is the upstream search surface the pipeline depends on.
type PlacesAPI interface {
	TextSearch(ctx context.Context, query string, center geo.Point, radiusMeters float64) ([]places.Summary, error)
	PlaceDetails(ctx context.Context, id string) (*places.Details, error)
	PhotoURL(photoName string) string
}

// MenuFinder locates a menu link on a restaurant website.
type MenuFinder interface {
	FindMenu(ctx context.Context, websiteURL string) (string, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Config tunes a scan run.
type Config struct {
	// SearchQuery is the text query sent per scan point; a named zone
	// scopes it further as "<query> in <name>".
	SearchQuery string
	// SubScanRadiusMeters is the radius of each point query.
	SubScanRadiusMeters float64
	// EntityDelay paces enrichment between newly found entities.
	EntityDelay time.Duration
	// SaturationThreshold and HistorySize drive zone completion tracking.
	SaturationThreshold int
	HistorySize         int
}

func (c *Config) applyDefaults() {
	if c.SearchQuery == "" {
		c.SearchQuery = "restaurants"
	}
	if c.SubScanRadiusMeters <= 0 {
		c.SubScanRadiusMeters = 350
	}
	if c.EntityDelay < 0 {
		c.EntityDelay = 0
	}
	if c.SaturationThreshold <= 0 {
		c.SaturationThreshold = 2
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 5
	}
}

// ZoneReport summarizes one zone within a run.
type ZoneReport struct {
	ZoneID         string `json:"zone_id"`
	PointsScanned  int    `json:"points_scanned"`
	NewFound       int    `json:"new_found"`
	TotalInZone    int    `json:"total_in_zone"`
	LikelyComplete bool   `json:"likely_complete"`
}

// RunSummary is the result of one full scan run.
type RunSummary struct {
	RunID        uuid.UUID    `json:"run_id"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
	ZonesScanned int          `json:"zones_scanned"`
	NewFound     int          `json:"new_found"`
	TotalKnown   int          `json:"total_known"`
	Zones        []ZoneReport `json:"zones"`
}

// Pipeline executes scan runs sequentially over the registered zones.
type Pipeline struct {
	cfg     Config
	api     PlacesAPI
	finder  MenuFinder
	deriver *enrich.Deriver
	store   storage.Provider
	emitter progress.Emitter
	clock   Clock
	logger  *zap.Logger
}

// New wires a Pipeline.
func New(
	cfg Config,
	api PlacesAPI,
	finder MenuFinder,
	deriver *enrich.Deriver,
	store storage.Provider,
	emitter progress.Emitter,
	clock Clock,
	logger *zap.Logger,
) *Pipeline {
	cfg.applyDefaults()
	if deriver == nil {
		deriver = enrich.NewDeriver()
	}
	if emitter == nil {
		emitter = progress.NopEmitter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:     cfg,
		api:     api,
		finder:  finder,
		deriver: deriver,
		store:   store,
		emitter: emitter,
		clock:   clock,
		logger:  logger,
	}
}

// Run scans every registered zone once. Already known places are skipped
// before any enrichment call, so repeat runs only pay for what is new.
// On cancellation the accumulated state is still persisted before the
// context error is returned.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	return p.RunWithID(ctx, uuid.New())
}

// RunWithID is Run with a caller-supplied run identifier, so externally
// issued tickets match the identifiers on emitted events.
func (p *Pipeline) RunWithID(ctx context.Context, runID uuid.UUID) (*RunSummary, error) {
	zones, err := p.store.LoadZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("load zones: %w", err)
	}
	seed, err := p.store.LoadState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	state := discovery.NewState(seed)

	summary := &RunSummary{
		RunID:     runID,
		StartedAt: p.clock.Now(),
	}
	p.logger.Info("scan run starting",
		zap.String("run_id", summary.RunID.String()),
		zap.Int("zones", len(zones)),
		zap.Int("known", state.Len()))
	p.emit(progress.Event{RunID: summary.RunID, Stage: progress.StageScanStart})

	// State written so far survives cancellation mid-zone.
	persisted := false
	persist := func() error {
		persisted = true
		if err := p.store.SaveState(context.Background(), state.Entities()); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
		if err := p.store.SaveZones(context.Background(), zones); err != nil {
			return fmt.Errorf("save zones: %w", err)
		}
		return nil
	}
	defer func() {
		if persisted {
			return
		}
		if err := persist(); err != nil {
			p.logger.Error("best effort persist failed", zap.Error(err))
		}
	}()

	for i := range zones {
		report, err := p.scanZone(ctx, summary.RunID, &zones[i], state)
		if err != nil {
			p.emit(progress.Event{
				RunID: summary.RunID, Stage: progress.StageScanError,
				ZoneID: zones[i].ID, Note: err.Error(),
			})
			return nil, err
		}
		summary.Zones = append(summary.Zones, report)
		summary.ZonesScanned++
		summary.NewFound += report.NewFound
	}

	if err := persist(); err != nil {
		return nil, err
	}

	summary.FinishedAt = p.clock.Now()
	summary.TotalKnown = state.Len()
	p.emit(progress.Event{
		RunID: summary.RunID, Stage: progress.StageScanDone,
		NewFound: summary.NewFound, TotalKnown: summary.TotalKnown,
	})
	p.logger.Info("scan run finished",
		zap.String("run_id", summary.RunID.String()),
		zap.Int("new_found", summary.NewFound),
		zap.Int("total_known", summary.TotalKnown),
		zap.Duration("took", summary.FinishedAt.Sub(summary.StartedAt)))
	return summary, nil
}

func (p *Pipeline) scanZone(
	ctx context.Context,
	runID uuid.UUID,
	zone *discovery.Zone,
	state *discovery.State,
) (ZoneReport, error) {
	points := geo.Plan(zone.Center, zone.RadiusMeters, p.cfg.SubScanRadiusMeters)
	query := p.cfg.SearchQuery
	if zone.Name != "" {
		query = fmt.Sprintf("%s in %s", p.cfg.SearchQuery, zone.Name)
	}
	p.logger.Info("scanning zone",
		zap.String("zone_id", zone.ID),
		zap.Int("points", len(points)),
		zap.String("query", query))

	newFound := 0
	for _, point := range points {
		if err := ctx.Err(); err != nil {
			return ZoneReport{}, err
		}
		summaries, err := p.api.TextSearch(ctx, query, point, p.cfg.SubScanRadiusMeters)
		if err != nil {
			if ctx.Err() != nil {
				return ZoneReport{}, ctx.Err()
			}
			p.logger.Warn("point search failed, skipping point",
				zap.String("zone_id", zone.ID),
				zap.Float64("lat", point.Latitude),
				zap.Float64("lng", point.Longitude),
				zap.Error(err))
			continue
		}
		for _, s := range summaries {
			if s.ID == "" || state.Contains(s.ID) {
				continue
			}
			entity, ok, err := p.buildEntity(ctx, zone.ID, s)
			if err != nil {
				return ZoneReport{}, err
			}
			if !ok {
				continue
			}
			if err := state.Record(entity); err != nil {
				p.logger.Warn("skipping entity", zap.String("place_id", s.ID), zap.Error(err))
				continue
			}
			newFound++
			p.emit(progress.Event{
				RunID: runID, Stage: progress.StageRestaurantFound,
				ZoneID: zone.ID, PlaceID: entity.PlaceID, Name: entity.Name,
				NewFound: 1, TotalKnown: state.Len(),
			})
			if err := sleepCtx(ctx, p.cfg.EntityDelay); err != nil {
				return ZoneReport{}, err
			}
		}
	}

	now := p.clock.Now()
	totalInZone := state.ZoneCount(zone.ID)
	zone.ApplyScanResult(newFound, totalInZone, now, p.cfg.SaturationThreshold, p.cfg.HistorySize)

	if err := p.writeSnapshot(ctx, zone.ID, now, state); err != nil {
		p.logger.Warn("zone snapshot failed", zap.String("zone_id", zone.ID), zap.Error(err))
	}

	p.emit(progress.Event{
		RunID: runID, Stage: progress.StageZoneScanComplete,
		ZoneID: zone.ID, NewFound: newFound, TotalKnown: state.Len(),
	})
	p.logger.Info("zone scan complete",
		zap.String("zone_id", zone.ID),
		zap.Int("new_found", newFound),
		zap.Int("total_in_zone", totalInZone),
		zap.Bool("likely_complete", zone.LikelyComplete))

	return ZoneReport{
		ZoneID:         zone.ID,
		PointsScanned:  len(points),
		NewFound:       newFound,
		TotalInZone:    totalInZone,
		LikelyComplete: zone.LikelyComplete,
	}, nil
}

// buildEntity enriches one search hit into a full entity. A denied or
// missing details lookup skips the entity rather than failing the zone.
func (p *Pipeline) buildEntity(
	ctx context.Context,
	zoneID string,
	s places.Summary,
) (discovery.Entity, bool, error) {
	details, err := p.api.PlaceDetails(ctx, s.ID)
	if err != nil {
		if ctx.Err() != nil {
			return discovery.Entity{}, false, ctx.Err()
		}
		p.logger.Warn("details lookup failed, skipping place",
			zap.String("place_id", s.ID), zap.Error(err))
		return discovery.Entity{}, false, nil
	}
	if details == nil {
		return discovery.Entity{}, false, nil
	}

	entity := discovery.Entity{
		PlaceID:      s.ID,
		Name:         s.DisplayName.Text,
		Latitude:     s.Location.Latitude,
		Longitude:    s.Location.Longitude,
		Address:      details.FormattedAddress,
		Postcode:     p.deriver.Postcode(details.FormattedAddress),
		Cuisine:      p.deriver.Cuisine(details.Types),
		Categories:   details.Types,
		Website:      details.WebsiteURI,
		Rating:       details.Rating,
		ReviewsCount: details.UserRatingCount,
		PriceLevel:   details.NumericPriceLevel(),
		ZoneID:       zoneID,
		DiscoveredAt: p.clock.Now(),
	}
	if details.DisplayName.Text != "" {
		entity.Name = details.DisplayName.Text
	}
	if details.Location.Latitude != 0 || details.Location.Longitude != 0 {
		entity.Latitude = details.Location.Latitude
		entity.Longitude = details.Location.Longitude
	}
	if len(details.Photos) > 0 {
		entity.HeroImageURL = p.api.PhotoURL(details.Photos[0].Name)
	}

	if entity.Website != "" {
		menuURL, err := p.finder.FindMenu(ctx, entity.Website)
		if err != nil {
			return discovery.Entity{}, false, err
		}
		entity.MenuURL = menuURL
	}
	return entity, true, nil
}

func (p *Pipeline) writeSnapshot(
	ctx context.Context,
	zoneID string,
	at time.Time,
	state *discovery.State,
) error {
	var buf bytes.Buffer
	if err := export.Write(&buf, state.ZoneEntities(zoneID)); err != nil {
		return err
	}
	name := fmt.Sprintf("%s_%s.csv", zoneID, at.UTC().Format("20060102T150405Z"))
	return p.store.WriteSnapshot(ctx, name, buf.Bytes())
}

func (p *Pipeline) emit(evt progress.Event) {
	evt.TS = p.clock.Now()
	p.emitter.Emit(evt)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
