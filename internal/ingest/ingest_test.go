package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastejobs-backend/internal/database"
	"wastejobs-backend/internal/models"
	"wastejobs-backend/internal/openinghours"
	"wastejobs-backend/pkg/errs"
)

const testLabel = "PSZOK Wola\nDzień i godzina odbioru: poniedziałek - piątek 7:00 - 20:00; sobota 9:00 - 17:00"

func collection(ids ...string) string {
	features := make([]string, 0, len(ids))
	for i, id := range ids {
		features = append(features, fmt.Sprintf(
			`{"type":"Feature","_id":%q,"geometry":{"type":"Point","coordinates":[%f,%f]},"properties":{"_label_":%q}}`,
			id, 7500000.0+float64(i)*500, 5789000.0, testLabel,
		))
	}
	return `{"type":"FeatureCollection","features":[` + strings.Join(features, ",") + `]}`
}

type layerBodies struct {
	mu     sync.Mutex
	bodies map[string]string
}

func (b *layerBodies) get(layer string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	body, ok := b.bodies[layer]
	return body, ok
}

func (b *layerBodies) set(layer, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if body == "" {
		delete(b.bodies, layer)
		return
	}
	b.bodies[layer] = body
}

// mapServer serves one collection per layer; unknown layers answer 500.
func mapServer(t *testing.T, bodies map[string]string) (*httptest.Server, *int32, *layerBodies) {
	t.Helper()
	var hits int32
	lb := &layerBodies{bodies: bodies}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "2178", r.URL.Query().Get("to_srid"))
		body, ok := lb.get(r.URL.Query().Get("t"))
		if !ok {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits, lb
}

func newPointRepo(t *testing.T) *database.PointRepository {
	t.Helper()
	db, err := database.Connect(database.DriverSQLite, filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return database.NewPointRepository(db)
}

func TestSelectLayers(t *testing.T) {
	all, err := SelectLayers(nil)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	some, err := SelectLayers([]string{"EKOPUNKTY_PME_N", "EKOPUNKTY_OPL_N"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "EKOPUNKTY_OPL_N", some[0].Name)
	assert.Equal(t, models.CategorySmallElectronics, some[1].Category)

	_, err = SelectLayers([]string{"NOPE"})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestFeatureIDAcceptsNumbers(t *testing.T) {
	var f Feature
	require.NoError(t, json.Unmarshal([]byte(`{"_id":12345,"geometry":{"coordinates":[1,2]}}`), &f))
	assert.Equal(t, FeatureID("12345"), f.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"_id":"abc"}`), &f))
	assert.Equal(t, FeatureID("abc"), f.ID)
}

func TestFeatureToPoint(t *testing.T) {
	var fc FeatureCollection
	require.NoError(t, json.Unmarshal([]byte(collection("p1")), &fc))
	require.Len(t, fc.Features, 1)

	p, err := fc.Features[0].ToPoint(models.CategoryPSZOK)
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.InDelta(t, 21.0, p.Longitude, 1e-6)
	assert.InDelta(t, 52.2, p.Latitude, 0.3)
	assert.Equal(t, testLabel, p.Description)
	assert.Equal(t, openinghours.TimeRange{"07:00", "20:00"}, p.OpeningHours[openinghours.Friday])
	assert.Equal(t, openinghours.TimeRange{"09:00", "17:00"}, p.OpeningHours[openinghours.Saturday])
	assert.NotContains(t, p.OpeningHours, openinghours.Sunday)
}

func TestFeatureToPointRejectsBrokenFeatures(t *testing.T) {
	var noCoords Feature
	noCoords.ID = "x"
	_, err := noCoords.ToPoint(models.CategoryPSZOK)
	assert.ErrorIs(t, err, errs.ErrInvalidCoordinate)

	var noID Feature
	noID.Geometry.Coordinates = []float64{7500000, 5789000}
	_, err = noID.ToPoint(models.CategoryPSZOK)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestLayerURL(t *testing.T) {
	f := NewHTTPFetcher(FetcherOptions{})
	u := f.LayerURL("EKOPUNKTY_PME_N")
	assert.True(t, strings.HasPrefix(u, DefaultBaseURL+"?t=EKOPUNKTY_PME_N&bbox="))
	assert.Contains(t, u, "to_srid=2178")
}

func TestRunSkipsFailedLayer(t *testing.T) {
	srv, hits, _ := mapServer(t, map[string]string{
		"EKOPUNKTY_PSZOK_N":  collection("a1", "a2"),
		"EKOPUNKTY_MPSZOK_N": collection("a2", "a3"),
		"EKOPUNKTY_OPL_N":    collection("m1"),
		"EKOPUNKY_MPE_N":     collection("e1"),
		"EKOPUNKTY_PME_N":    `{"type":"FeatureCollection","features":[{"_id":"s1","geometry":{"coordinates":[]}}]}`,
	})
	repo := newPointRepo(t)
	in := NewIngester(NewHTTPFetcher(FetcherOptions{BaseURL: srv.URL}), repo, 2)

	res, err := in.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.EqualValues(t, 6, atomic.LoadInt32(hits))
	assert.Equal(t, 1, res.Failed())
	assert.EqualValues(t, 5, res.Stored)

	byLayer := map[string]LayerResult{}
	for _, l := range res.Layers {
		byLayer[l.Layer] = l
	}
	assert.NotEmpty(t, byLayer["EKOPUNKTY_MPZE_N"].Error)
	assert.Equal(t, 1, byLayer["EKOPUNKTY_PME_N"].Skipped)
	assert.Equal(t, 2, byLayer["EKOPUNKTY_MPSZOK_N"].Points)

	points, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, points, 5)

	pszok, err := repo.ListByCategory(context.Background(), models.CategoryPSZOK)
	require.NoError(t, err)
	assert.Len(t, pszok, 3)
}

func TestRunIsIdempotentWithoutRefresh(t *testing.T) {
	srv, _, _ := mapServer(t, map[string]string{"EKOPUNKTY_OPL_N": collection("m1", "m2")})
	repo := newPointRepo(t)
	in := NewIngester(NewHTTPFetcher(FetcherOptions{BaseURL: srv.URL}), repo, 0)
	opts := Options{Layers: []string{"EKOPUNKTY_OPL_N"}}

	first, err := in.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.EqualValues(t, 2, first.Stored)

	second, err := in.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.EqualValues(t, 0, second.Stored)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRefreshReplacesCatalog(t *testing.T) {
	srv, _, bodies := mapServer(t, map[string]string{"EKOPUNKTY_OPL_N": collection("m1", "m2")})
	repo := newPointRepo(t)
	in := NewIngester(NewHTTPFetcher(FetcherOptions{BaseURL: srv.URL}), repo, 1)
	opts := Options{Refresh: true, Layers: []string{"EKOPUNKTY_OPL_N"}}

	_, err := in.Run(context.Background(), opts)
	require.NoError(t, err)

	bodies.set("EKOPUNKTY_OPL_N", collection("m3"))
	res, err := in.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Stored)

	points, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "m3", points[0].ID)

	// an outage must not wipe the catalog
	bodies.set("EKOPUNKTY_OPL_N", "")
	res, err = in.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed())
	points, err = repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	srv, _, _ := mapServer(t, map[string]string{})
	in := NewIngester(NewHTTPFetcher(FetcherOptions{BaseURL: srv.URL}), newPointRepo(t), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := in.Run(ctx, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSchedulerRegistersJobs(t *testing.T) {
	s := NewScheduler(0)
	require.NoError(t, s.Add("@every 1h", "noop", func(context.Context) error { return nil }))
	require.NoError(t, s.AddIngest("0 3 * * *", NewIngester(nil, nil, 1), Options{}))
	assert.Error(t, s.Add("not a spec", "bad", func(context.Context) error { return nil }))
	assert.Equal(t, 2, s.Entries())

	s.Start()
	s.Stop(context.Background())
}
