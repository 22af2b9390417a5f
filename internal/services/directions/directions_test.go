package directions

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/maps/routing/apiv2/routingpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"wastejobs-backend/internal/geo"
)

var (
	from = geo.Location{Latitude: 52.2297, Longitude: 21.0122}
	to   = geo.Location{Latitude: 52.2500, Longitude: 20.9800}
)

func lineStruct(t *testing.T) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(map[string]any{
		"type": "LineString",
		"coordinates": []any{
			[]any{21.0122, 52.2297},
			[]any{21.0000, 52.2400},
			[]any{20.9800, 52.2500},
		},
	})
	require.NoError(t, err)
	return s
}

func TestLineStringFromStruct(t *testing.T) {
	line, err := LineStringFromStruct(lineStruct(t))
	require.NoError(t, err)
	require.NotNil(t, line)
	assert.Equal(t, 3, line.NumCoords())
	assert.Equal(t, geom.Coord{21.0122, 52.2297}, line.Coord(0))

	line, err = LineStringFromStruct(nil)
	require.NoError(t, err)
	assert.Nil(t, line)

	point, err := structpb.NewStruct(map[string]any{"type": "Point", "coordinates": []any{21.0, 52.0}})
	require.NoError(t, err)
	_, err = LineStringFromStruct(point)
	assert.Error(t, err)
}

func TestClientRouteUsesCache(t *testing.T) {
	calls := 0
	compute := func(ctx context.Context, req *routingpb.ComputeRoutesRequest) (*routingpb.ComputeRoutesResponse, error) {
		calls++
		md, _ := metadata.FromOutgoingContext(ctx)
		assert.Equal(t, []string{fieldMask}, md.Get("X-Goog-FieldMask"))
		assert.Equal(t, routingpb.PolylineEncoding_GEO_JSON_LINESTRING, req.GetPolylineEncoding())
		assert.Equal(t, from.Latitude, req.GetOrigin().GetLocation().GetLatLng().GetLatitude())
		return &routingpb.ComputeRoutesResponse{
			Routes: []*routingpb.Route{{
				Polyline: &routingpb.Polyline{
					PolylineType: &routingpb.Polyline_GeoJsonLinestring{GeoJsonLinestring: lineStruct(t)},
				},
			}},
		}, nil
	}

	cache := NewRouteCache(10, time.Hour)
	c := newClient(compute, cache, time.Second)

	first, err := c.Route(context.Background(), from, to)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := c.Route(context.Background(), from, to)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
	assert.EqualValues(t, 1, cache.GetStats()["hits"])
}

func TestClientRouteNoRoutesAndErrors(t *testing.T) {
	empty := newClient(func(context.Context, *routingpb.ComputeRoutesRequest) (*routingpb.ComputeRoutesResponse, error) {
		return &routingpb.ComputeRoutesResponse{}, nil
	}, nil, time.Second)
	line, err := empty.Route(context.Background(), from, to)
	require.NoError(t, err)
	assert.Nil(t, line)

	failing := newClient(func(context.Context, *routingpb.ComputeRoutesRequest) (*routingpb.ComputeRoutesResponse, error) {
		return nil, errors.New("PERMISSION_DENIED")
	}, nil, time.Second)
	_, err = failing.Route(context.Background(), from, to)
	assert.Error(t, err)
}

func TestRouteCacheExpiryAndEviction(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	cache := NewRouteCache(2, time.Hour)
	cache.now = func() time.Time { return now }

	line := geom.NewLineString(geom.XY)
	cache.Set("a", line)
	now = now.Add(time.Minute)
	cache.Set("b", line)
	now = now.Add(time.Minute)

	_, ok := cache.Get("a")
	require.True(t, ok)

	cache.Set("c", line)
	_, ok = cache.Get("b")
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok = cache.Get("a")
	assert.True(t, ok)

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 2, cache.Cleanup())
	_, ok = cache.Get("c")
	assert.False(t, ok)

	stats := cache.GetStats()
	assert.Equal(t, 0, stats["cache_size"])
	assert.EqualValues(t, 3, stats["evictions"])
}

func TestSignature(t *testing.T) {
	near := geo.Location{Latitude: from.Latitude + 0.00001, Longitude: from.Longitude}
	assert.Equal(t, Signature(from, to), Signature(near, to))
	assert.NotEqual(t, Signature(from, to), Signature(to, from))
}
