// Package directions fetches route geometry from the Google Routes API.
package directions

import (
	"context"
	"time"

	routing "cloud.google.com/go/maps/routing/apiv2"
	"cloud.google.com/go/maps/routing/apiv2/routingpb"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/genproto/googleapis/type/latlng"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"wastejobs-backend/internal/geo"
)

const (
	routesEndpoint = "https://routes.googleapis.com"
	fieldMask      = "routes.polyline"
)

type computeRoutesFunc func(ctx context.Context, req *routingpb.ComputeRoutesRequest) (*routingpb.ComputeRoutesResponse, error)

// Client answers route requests, consulting the cache first.
type Client struct {
	compute computeRoutesFunc
	close   func() error
	cache   *RouteCache
	timeout time.Duration
}

// NewClient connects to the Routes API. cache may be nil.
func NewClient(ctx context.Context, apiKey string, timeout time.Duration, cache *RouteCache) (*Client, error) {
	if apiKey == "" {
		return nil, eris.New("directions: api key is required")
	}
	cli, err := routing.NewRoutesRESTClient(
		ctx,
		option.WithAPIKey(apiKey),
		option.WithEndpoint(routesEndpoint),
	)
	if err != nil {
		return nil, eris.Wrap(err, "directions: create routes client")
	}
	c := newClient(func(ctx context.Context, req *routingpb.ComputeRoutesRequest) (*routingpb.ComputeRoutesResponse, error) {
		return cli.ComputeRoutes(ctx, req)
	}, cache, timeout)
	c.close = cli.Close
	return c, nil
}

func newClient(compute computeRoutesFunc, cache *RouteCache, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{compute: compute, close: func() error { return nil }, cache: cache, timeout: timeout}
}

func (c *Client) Close() error {
	return c.close()
}

// Cache exposes the route cache, nil when caching is off.
func (c *Client) Cache() *RouteCache {
	return c.cache
}

// Route returns the driving route geometry from origin to destination, or
// nil when the provider has none.
func (c *Client) Route(ctx context.Context, origin, destination geo.Location) (*geom.LineString, error) {
	var sig string
	if c.cache != nil {
		sig = Signature(origin, destination)
		if route, ok := c.cache.Get(sig); ok {
			return route, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &routingpb.ComputeRoutesRequest{
		Origin:            waypoint(origin),
		Destination:       waypoint(destination),
		TravelMode:        routingpb.RouteTravelMode_DRIVE,
		RoutingPreference: routingpb.RoutingPreference_TRAFFIC_UNAWARE,
		PolylineQuality:   routingpb.PolylineQuality_OVERVIEW,
		PolylineEncoding:  routingpb.PolylineEncoding_GEO_JSON_LINESTRING,
	}
	ctx = metadata.AppendToOutgoingContext(ctx, "X-Goog-FieldMask", fieldMask)

	resp, err := c.compute(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "directions: compute routes")
	}
	if len(resp.GetRoutes()) == 0 {
		zap.L().Debug("routes api returned no routes",
			zap.Float64("origin_lat", origin.Latitude),
			zap.Float64("origin_lon", origin.Longitude),
		)
		return nil, nil
	}

	line, err := LineStringFromStruct(resp.GetRoutes()[0].GetPolyline().GetGeoJsonLinestring())
	if err != nil {
		return nil, err
	}
	if line != nil && c.cache != nil {
		c.cache.Set(sig, line)
	}
	return line, nil
}

// LineStringFromStruct decodes a GeoJSON LineString carried in a protobuf
// Struct. A nil struct yields a nil line.
func LineStringFromStruct(s *structpb.Struct) (*geom.LineString, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := protojson.Marshal(s)
	if err != nil {
		return nil, eris.Wrap(err, "directions: marshal polyline")
	}

	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil {
		return nil, eris.Wrap(err, "directions: decode polyline")
	}
	line, ok := g.(*geom.LineString)
	if !ok {
		return nil, eris.Errorf("directions: expected LineString, got %T", g)
	}
	return line, nil
}

func waypoint(l geo.Location) *routingpb.Waypoint {
	return &routingpb.Waypoint{
		LocationType: &routingpb.Waypoint_Location{
			Location: &routingpb.Location{
				LatLng: &latlng.LatLng{Latitude: l.Latitude, Longitude: l.Longitude},
			},
		},
	}
}
