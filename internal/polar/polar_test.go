package polar

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const naca0012 = `
       XFOIL         Version 6.99

 Calculated polar for: NACA 0012

 1 1 Reynolds number fixed          Mach number fixed

 xtrf =   1.000 (top)        1.000 (bottom)
 Mach =   0.000     Re =     1.000 e 6     Ncrit =   9.000

   alpha    CL        CD       CDp       CM     Top_Xtr  Bot_Xtr
  ------ -------- --------- --------- -------- -------- --------
   0.000   0.0000   0.00540   0.00103   0.0000   0.7430   0.7430
   1.000   0.1095   0.00543   0.00106   0.0003   0.6913   0.7917
   2.000   0.2187   0.00554   0.00116   0.0007   0.6377   0.8378
`

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestParse(t *testing.T) {
	p, err := Parse(strings.NewReader(naca0012))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Airfoil != "NACA 0012" {
		t.Errorf("Airfoil = %q, want NACA 0012", p.Airfoil)
	}
	if !approx(p.Re, 1e6) || !approx(p.Mach, 0) || !approx(p.Ncrit, 9) {
		t.Errorf("conditions = Re %g Mach %g Ncrit %g", p.Re, p.Mach, p.Ncrit)
	}
	if len(p.Columns) != 7 || p.Columns[0] != "alpha" || p.Columns[6] != "Bot_Xtr" {
		t.Errorf("Columns = %q", p.Columns)
	}
	if len(p.Points) != 3 {
		t.Fatalf("len(Points) = %d, want 3", len(p.Points))
	}
	pt := p.Points[1]
	want := Point{Alpha: 1, CL: 0.1095, CD: 0.00543, CDp: 0.00106, CM: 0.0003, TopXtr: 0.6913, BotXtr: 0.7917}
	if pt != want {
		t.Errorf("Points[1] = %+v, want %+v", pt, want)
	}
}

func TestParse_Column(t *testing.T) {
	p, err := Parse(strings.NewReader(naca0012))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cl := p.Column("cl")
	if len(cl) != 3 || !approx(cl[2], 0.2187) {
		t.Errorf("Column(cl) = %v", cl)
	}
	if p.Column("Cpmin") != nil {
		t.Error("Column(Cpmin) != nil for a missing column")
	}
}

func TestParse_ExtraColumns(t *testing.T) {
	in := `
   alpha    CL        CD       CDp       CM     Top_Xtr  Bot_Xtr  Cpmin
  ------ -------- --------- --------- -------- -------- -------- --------
   4.000   0.4352   0.00612   0.00160   0.0021   0.5113   0.9340  -1.2000
`
	p, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cp := p.Column("Cpmin"); len(cp) != 1 || !approx(cp[0], -1.2) {
		t.Errorf("Column(Cpmin) = %v", cp)
	}
	if !approx(p.Points[0].CL, 0.4352) {
		t.Errorf("CL = %g", p.Points[0].CL)
	}
}

func TestParse_NoConvergedPoints(t *testing.T) {
	in := strings.SplitAfter(naca0012, "--------\n")[0]
	p, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Points) != 0 {
		t.Errorf("Points = %+v, want none", p.Points)
	}
}

func TestParse_NoTable(t *testing.T) {
	if _, err := Parse(strings.NewReader(" Calculated polar for: NACA 0012\n")); err == nil {
		t.Fatal("expected error for a file without a table")
	}
}

func TestParse_BadRow(t *testing.T) {
	in := naca0012 + "   3.000   0.3\n"
	_, err := Parse(strings.NewReader(in))
	if err == nil || !strings.Contains(err.Error(), "want 7") {
		t.Errorf("Parse error = %v, want a column count error", err)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polar.txt")
	if err := os.WriteFile(path, []byte(naca0012), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(p.Points) != 3 {
		t.Errorf("len(Points) = %d, want 3", len(p.Points))
	}
}

func TestParseFile_Missing(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}
