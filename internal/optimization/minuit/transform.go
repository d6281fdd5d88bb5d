package minuit

import "math"

// limitKind selects the internal reparameterization of a parameter.
type limitKind int

const (
	limitNone limitKind = iota
	limitLower
	limitUpper
	limitBoth
)

var (
	// eps2 mirrors the precision the sin transform uses to stay off ±π/2.
	eps2     = 2 * math.Sqrt(2.220446049250313e-16)
	piby2    = math.Pi / 2
	vlimDist = 8 * math.Sqrt(eps2)
)

func (p *Parameter) kind() limitKind {
	switch {
	case p.HasLower && p.HasUpper:
		return limitBoth
	case p.HasLower:
		return limitLower
	case p.HasUpper:
		return limitUpper
	default:
		return limitNone
	}
}

// ext2int maps an external value onto the unbounded internal axis.
func (p *Parameter) ext2int(v float64) float64 {
	switch p.kind() {
	case limitBoth:
		yy := 2*(v-p.Lower)/(p.Upper-p.Lower) - 1
		if yy*yy > 1-eps2 {
			if yy < 0 {
				return -piby2 + vlimDist
			}
			return piby2 - vlimDist
		}
		return math.Asin(yy)
	case limitLower:
		yy := v - p.Lower + 1
		if yy*yy < 1 {
			return 0
		}
		return math.Sqrt(yy*yy - 1)
	case limitUpper:
		yy := p.Upper - v + 1
		if yy*yy < 1 {
			return 0
		}
		return math.Sqrt(yy*yy - 1)
	default:
		return v
	}
}

// int2ext maps an internal value back to the external, bounded axis.
func (p *Parameter) int2ext(u float64) float64 {
	switch p.kind() {
	case limitBoth:
		return p.Lower + 0.5*(p.Upper-p.Lower)*(math.Sin(u)+1)
	case limitLower:
		return p.Lower - 1 + math.Sqrt(u*u+1)
	case limitUpper:
		return p.Upper + 1 - math.Sqrt(u*u+1)
	default:
		return u
	}
}

// dInt2Ext is d(ext)/d(int) at internal value u.
func (p *Parameter) dInt2Ext(u float64) float64 {
	switch p.kind() {
	case limitBoth:
		return 0.5 * (p.Upper - p.Lower) * math.Cos(u)
	case limitLower:
		return u / math.Sqrt(u*u+1)
	case limitUpper:
		return -u / math.Sqrt(u*u+1)
	default:
		return 1
	}
}

// ext2intError converts an external error at value v into an internal step.
func (p *Parameter) ext2intError(v, err float64) float64 {
	if p.kind() == limitNone {
		return err
	}
	ui := p.ext2int(v)
	du1 := p.ext2int(v+err) - ui
	du2 := p.ext2int(v-err) - ui
	if p.kind() == limitBoth && err > 1 {
		du1 = 2 * math.Pi
	}
	return 0.5 * (math.Abs(du1) + math.Abs(du2))
}

// int2extError converts an internal error at internal value u into an external one.
func (p *Parameter) int2extError(u, err float64) float64 {
	if p.kind() == limitNone {
		return err
	}
	xi := p.int2ext(u)
	du1 := p.int2ext(u+err) - xi
	du2 := p.int2ext(u-err) - xi
	if p.kind() == limitBoth && err > 1 {
		du1 = p.Upper - p.Lower
	}
	return 0.5 * (math.Abs(du1) + math.Abs(du2))
}
