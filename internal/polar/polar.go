// Package polar parses the polar save files XFOIL writes while polar
// accumulation (PACC) is on.
package polar

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Polar is the content of a polar save file.
type Polar struct {
	Airfoil string      `json:"airfoil"`
	Mach    float64     `json:"mach"`
	Re      float64     `json:"re"`
	Ncrit   float64     `json:"ncrit"`
	Columns []string    `json:"columns"`
	Points  []Point     `json:"points"`
	Rows    [][]float64 `json:"rows"` // raw values in Columns order
}

// Point is one converged operating point.
type Point struct {
	Alpha  float64 `json:"alpha"`
	CL     float64 `json:"cl"`
	CD     float64 `json:"cd"`
	CDp    float64 `json:"cdp"`
	CM     float64 `json:"cm"`
	TopXtr float64 `json:"top_xtr"`
	BotXtr float64 `json:"bot_xtr"`
}

// Column returns the values of the named column, or nil if the file
// has no such column.
func (p *Polar) Column(name string) []float64 {
	idx := -1
	for i, c := range p.Columns {
		if strings.EqualFold(c, name) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]float64, 0, len(p.Rows))
	for _, row := range p.Rows {
		out = append(out, row[idx])
	}
	return out
}

const airfoilPrefix = "Calculated polar for:"

// Mach =   0.000     Re =     1.000 e 6     Ncrit =   9.000
var conditionsRe = regexp.MustCompile(`Mach\s*=\s*(\S+)\s+Re\s*=\s*([0-9.]+)\s*e\s*([-+]?[0-9]+)\s+Ncrit\s*=\s*(\S+)`)

// ParseFile parses the polar file at path.
func ParseFile(path string) (*Polar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening polar: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a polar file. The header block is optional; the column
// header and its dashed underline are required. An empty table (no
// converged points) is not an error.
func Parse(r io.Reader) (*Polar, error) {
	p := &Polar{}
	sc := bufio.NewScanner(r)
	lineNo := 0
	inTable := false
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if inTable {
			row, err := parseRow(line, len(p.Columns))
			if err != nil {
				return nil, fmt.Errorf("polar line %d: %w", lineNo, err)
			}
			p.Rows = append(p.Rows, row)
			p.Points = append(p.Points, p.point(row))
			continue
		}

		switch {
		case strings.HasPrefix(line, airfoilPrefix):
			p.Airfoil = strings.TrimSpace(strings.TrimPrefix(line, airfoilPrefix))
		case conditionsRe.MatchString(line):
			if err := p.parseConditions(line); err != nil {
				return nil, fmt.Errorf("polar line %d: %w", lineNo, err)
			}
		case strings.HasPrefix(line, "alpha"):
			p.Columns = strings.Fields(line)
		case strings.HasPrefix(line, "---"):
			if p.Columns == nil {
				return nil, fmt.Errorf("polar line %d: table rule without column header", lineNo)
			}
			inTable = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading polar: %w", err)
	}
	if !inTable {
		return nil, fmt.Errorf("no polar table found")
	}
	return p, nil
}

func (p *Polar) parseConditions(line string) error {
	m := conditionsRe.FindStringSubmatch(line)
	mach, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return fmt.Errorf("parsing Mach: %w", err)
	}
	// XFOIL prints the Reynolds number as mantissa and exponent
	// separated by " e ".
	re, err := strconv.ParseFloat(m[2]+"e"+m[3], 64)
	if err != nil {
		return fmt.Errorf("parsing Re: %w", err)
	}
	ncrit, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return fmt.Errorf("parsing Ncrit: %w", err)
	}
	p.Mach, p.Re, p.Ncrit = mach, re, ncrit
	return nil
}

func parseRow(line string, n int) ([]float64, error) {
	fields := strings.Fields(line)
	if len(fields) != n {
		return nil, fmt.Errorf("got %d values, want %d", len(fields), n)
	}
	row := make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i+1, err)
		}
		row[i] = v
	}
	return row, nil
}

func (p *Polar) point(row []float64) Point {
	var pt Point
	for i, c := range p.Columns {
		switch c {
		case "alpha":
			pt.Alpha = row[i]
		case "CL":
			pt.CL = row[i]
		case "CD":
			pt.CD = row[i]
		case "CDp":
			pt.CDp = row[i]
		case "CM":
			pt.CM = row[i]
		case "Top_Xtr":
			pt.TopXtr = row[i]
		case "Bot_Xtr":
			pt.BotXtr = row[i]
		}
	}
	return pt
}
