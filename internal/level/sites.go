package level

import (
	"context"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/zyedidia/generic/mapset"

	"levelgen/internal/geom"
	"levelgen/internal/world"
)

const (
	caveSiteInterval = 500
	caveSiteVariance = 250
	minSiteDistance  = 10
	sparseSiteOdds   = 10
)

// generateSites lays the Voronoi sites on a jittered lattice. Sites far from
// every tunnel are thinned out; cave surroundings get a denser sub-lattice.
func (l *Level) generateSites(ctx context.Context) error {
	v := l.Params.Voronoi
	interval, variance := v.SiteInterval, v.SiteVariance
	reach := float64(max(interval.X, interval.Y))

	l.sites = l.sites[:0]
	taken := mapset.New[[2]int]()
	for x := interval.X / 2; x < l.Borders.Width; x += interval.X {
		if err := ctx.Err(); err != nil {
			return err
		}
		for y := interval.Y / 2; y < l.Borders.Height; y += interval.Y {
			site := mgl64.Vec2{
				float64(x + l.rng.IntRange(-variance.X, variance.X)),
				float64(y + l.rng.IntRange(-variance.Y, variance.Y)),
			}

			closeToTunnel, closeToCave := false, false
			for _, t := range l.Tunnels {
				if !tunnelNear(t, site, max(float64(t.MinWidth)*2, reach)) {
					continue
				}
				closeToTunnel = true
				if t.Type == world.Cave {
					closeToCave = true
					break
				}
			}

			if !closeToTunnel && l.rng.IntRange(0, sparseSiteOdds) != 0 {
				continue
			}
			l.addSite(taken, site)

			if closeToCave {
				for cx := x - interval.X/2; cx < x+interval.X/2; cx += caveSiteInterval {
					for cy := y - interval.Y/2; cy < y+interval.Y/2; cy += caveSiteInterval {
						l.addSite(taken, mgl64.Vec2{
							float64(cx + l.rng.Int(caveSiteVariance)),
							float64(cy + l.rng.Int(caveSiteVariance)),
						})
					}
				}
			}
		}
	}
	return nil
}

// addSite appends p unless another site lies within minSiteDistance on
// both axes. taken holds the minSiteDistance buckets already occupied.
func (l *Level) addSite(taken mapset.Set[[2]int], p mgl64.Vec2) {
	bx, by := int(math.Floor(p[0]/minSiteDistance)), int(math.Floor(p[1]/minSiteDistance))
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if !taken.Has([2]int{bx + dx, by + dy}) {
				continue
			}
			for _, s := range l.sites {
				if math.Abs(s[0]-p[0]) < minSiteDistance && math.Abs(s[1]-p[1]) < minSiteDistance {
					return
				}
			}
		}
	}
	taken.Put([2]int{bx, by})
	l.sites = append(l.sites, p)
}

// tunnelNear reports whether p lies within dist of a segment of t.
func tunnelNear(t *world.Tunnel, p mgl64.Vec2, dist float64) bool {
	distSq := dist * dist
	for i := 1; i < len(t.Nodes); i++ {
		a, b := t.Nodes[i-1].Vec(), t.Nodes[i].Vec()
		if p[0] < math.Min(a[0], b[0])-dist || p[0] > math.Max(a[0], b[0])+dist ||
			p[1] < math.Min(a[1], b[1])-dist || p[1] > math.Max(a[1], b[1])+dist {
			continue
		}
		if geom.SegmentPointDistanceSquared(a, b, p) < distSq {
			return true
		}
	}
	return false
}
