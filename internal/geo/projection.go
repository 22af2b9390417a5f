package geo

import "math"

// PUWG 2000 zone 7 (EPSG:2178) on the GRS80 ellipsoid.
const (
	grs80A          = 6378137.0
	grs80F          = 1 / 298.257222101
	zone7Meridian   = 21.0
	zone7Scale      = 0.999923
	zone7FalseEast  = 7500000.0
	zone7FalseNorth = 0.0
)

// FromPUWG2000Zone7 converts projected EPSG:2178 coordinates (x easting,
// y northing, metres) to WGS84 degrees using the inverse transverse Mercator
// series.
func FromPUWG2000Zone7(x, y float64) Location {
	e2 := 2*grs80F - grs80F*grs80F
	ep2 := e2 / (1 - e2)

	m := (y - zone7FalseNorth) / zone7Scale
	mu := m / (grs80A * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))

	sq := math.Sqrt(1 - e2)
	e1 := (1 - sq) / (1 + sq)
	phi1 := mu +
		(3*e1/2-27*math.Pow(e1, 3)/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*math.Pow(e1, 4)/32)*math.Sin(4*mu) +
		(151*math.Pow(e1, 3)/96)*math.Sin(6*mu) +
		(1097*math.Pow(e1, 4)/512)*math.Sin(8*mu)

	sinPhi, cosPhi := math.Sin(phi1), math.Cos(phi1)
	tanPhi := sinPhi / cosPhi
	c1 := ep2 * cosPhi * cosPhi
	t1 := tanPhi * tanPhi
	w := 1 - e2*sinPhi*sinPhi
	n1 := grs80A / math.Sqrt(w)
	r1 := grs80A * (1 - e2) / math.Pow(w, 1.5)
	d := (x - zone7FalseEast) / (n1 * zone7Scale)

	lat := phi1 - (n1*tanPhi/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*math.Pow(d, 4)/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*math.Pow(d, 6)/720)
	lon := (d -
		(1+2*t1+c1)*math.Pow(d, 3)/6 +
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*math.Pow(d, 5)/120) / cosPhi

	return Location{
		Latitude:  lat * 180 / math.Pi,
		Longitude: zone7Meridian + lon*180/math.Pi,
	}
}
