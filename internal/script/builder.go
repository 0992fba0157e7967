package script

import (
	"strconv"
)

// Builder assembles the body of a script from XFOIL commands. Methods
// return the builder so calls can be chained; Build wraps the body with
// Prefix and Suffix.
//
//	s := script.NewBuilder().
//		NACA("0012").
//		Oper().Visc(1e6).Iter(100).
//		PolarAccumulate("polar.txt").
//		ASeq(0, 10, 1).
//		Build()
type Builder struct {
	body []string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends raw commands.
func (b *Builder) Add(cmds ...string) *Builder {
	b.body = append(b.body, cmds...)
	return b
}

// NACA generates a 4- or 5-digit NACA section.
func (b *Builder) NACA(code string) *Builder {
	return b.Add("NACA " + code)
}

// Load reads airfoil coordinates from path, relative to the results
// directory.
func (b *Builder) Load(path string) *Builder {
	return b.Add("LOAD " + path)
}

// Pane regenerates the paneling with the default parameters.
func (b *Builder) Pane() *Builder {
	return b.Add("PANE")
}

// Oper enters the OPER menu. The blank token at the start of Suffix
// leaves it again.
func (b *Builder) Oper() *Builder {
	return b.Add("OPER")
}

// Visc switches to viscous mode at Reynolds number re.
func (b *Builder) Visc(re float64) *Builder {
	return b.Add("VISC " + formatFloat(re))
}

// Mach sets the freestream Mach number.
func (b *Builder) Mach(m float64) *Builder {
	return b.Add("MACH " + formatFloat(m))
}

// Iter sets the viscous solution iteration limit.
func (b *Builder) Iter(n int) *Builder {
	return b.Add("ITER " + strconv.Itoa(n))
}

// Ncrit sets the transition amplification factor through the VPAR
// submenu and returns to OPER.
func (b *Builder) Ncrit(n float64) *Builder {
	return b.Add("VPAR", "N "+formatFloat(n), "")
}

// Alfa solves at a single angle of attack in degrees.
func (b *Builder) Alfa(alpha float64) *Builder {
	return b.Add("ALFA " + formatFloat(alpha))
}

// ASeq sweeps the angle of attack from start to end in steps of step.
func (b *Builder) ASeq(start, end, step float64) *Builder {
	return b.Add("ASEQ " + formatFloat(start) + " " + formatFloat(end) + " " + formatFloat(step))
}

// CL solves for a prescribed lift coefficient.
func (b *Builder) CL(cl float64) *Builder {
	return b.Add("CL " + formatFloat(cl))
}

// PolarAccumulate turns on polar accumulation into file, with no dump
// file. XFOIL prompts for both names after PACC.
func (b *Builder) PolarAccumulate(file string) *Builder {
	return b.Add("PACC", file, "")
}

// Build wraps the accumulated body into a Script.
func (b *Builder) Build() Script {
	return Wrap(b.body...)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
