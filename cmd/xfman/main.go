// Command xfman runs XFOIL command scripts and airfoil polar sweeps.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/deixis/xfman"
	"github.com/deixis/xfman/internal/config"
	xfmcp "github.com/deixis/xfman/internal/mcp"
	"github.com/deixis/xfman/internal/polar"
	"github.com/deixis/xfman/internal/report"
	"github.com/deixis/xfman/internal/script"
	"github.com/deixis/xfman/internal/workflow"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// errFailed makes main exit 1 without logging: the run outcome has
// already been printed.
var errFailed = errors.New("run failed")

func main() {
	log.SetFlags(0)
	log.SetPrefix("xfman: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "run":
		err = runMain(args)
	case "validate":
		err = validateMain(args)
	case "polar":
		err = polarMain(args)
	case "inspect":
		err = inspectMain(args)
	case "mcp":
		err = mcpMain(args)
	case "version":
		fmt.Println(xfman.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "xfman: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if errors.Is(err, errFailed) {
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: xfman <command> [flags] [args]

Commands:
  run         Run an XFOIL command script (file or stdin)
  validate    Check a command script without running XFOIL
  polar       Run an angle-of-attack sweep and print the polar
  inspect     List stored runs or drill into one
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Use "xfman <command> -h" for command-specific flags.`)
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(xfmcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eng, err := newEngine("", 0)
	if err != nil {
		return err
	}
	server := xfmcp.NewServer(eng)

	if *httpAddr != "" {
		return serveHTTP(ctx, server, *httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- run ---

func runMain(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	wrapFlag := fs.Bool("wrap", false, "add the PLOP/G prefix and QUIT suffix around the script")
	jsonFlag := fs.Bool("json", false, "output results as JSON")
	verboseFlag := fs.Bool("v", false, "print the full transcript")
	timeoutFlag := fs.Duration("timeout", 0, "override configured timeout (e.g. 30s)")
	xfoilFlag := fs.String("xfoil", "", "override configured XFOIL executable")
	_ = fs.Parse(args)

	s, err := readScript(fs.Args(), *wrapFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eng, err := newEngine(*xfoilFlag, *timeoutFlag)
	if err != nil {
		return err
	}

	rr, _ := eng.Run(ctx, s, 0)
	if err := printRun(rr, *jsonFlag, *verboseFlag); err != nil {
		return err
	}
	if !rr.Passed() {
		return errFailed
	}
	return nil
}

// --- validate ---

func validateMain(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	wrapFlag := fs.Bool("wrap", false, "add the PLOP/G prefix and QUIT suffix around the script")
	_ = fs.Parse(args)

	s, err := readScript(fs.Args(), *wrapFlag)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		fmt.Printf("FAIL\n\n%v\n", err)
		return errFailed
	}
	fmt.Printf("ok (%d commands, %d in body)\n", s.Len(), len(s.Body()))
	return nil
}

// readScript reads commands from the file named in args, or stdin when
// there is none or it is "-".
func readScript(args []string, wrap bool) (script.Script, error) {
	if len(args) > 1 {
		fmt.Fprintln(os.Stderr, "xfman: at most one script file may be given")
		os.Exit(2)
	}

	var r io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return script.Script{}, err
		}
		defer f.Close()
		r = f
	}

	cmds, err := script.ReadCommands(r)
	if err != nil {
		return script.Script{}, err
	}
	if wrap {
		return script.Wrap(cmds...), nil
	}
	return script.Raw(cmds), nil
}

// --- polar ---

func polarMain(args []string) error {
	fs := flag.NewFlagSet("polar", flag.ExitOnError)
	nacaFlag := fs.String("naca", "", "NACA 4- or 5-digit designation (e.g. 0012)")
	airfoilFlag := fs.String("airfoil", "", "airfoil coordinate file in the results directory")
	reFlag := fs.Float64("re", 0, "Reynolds number; 0 runs inviscid")
	machFlag := fs.Float64("mach", 0, "Mach number")
	iterFlag := fs.Int("iter", 0, "viscous iteration limit (default from config, 100)")
	ncritFlag := fs.Float64("ncrit", 0, "transition amplification factor (default from config)")
	fromFlag := fs.Float64("from", 0, "first angle of attack in degrees")
	toFlag := fs.Float64("to", 10, "last angle of attack in degrees")
	stepFlag := fs.Float64("step", 1, "angle increment in degrees")
	outFlag := fs.String("o", "", "polar file in the results directory (default "+workflow.DefaultPolarFile+")")
	jsonFlag := fs.Bool("json", false, "output results as JSON")
	verboseFlag := fs.Bool("v", false, "print the full transcript")
	timeoutFlag := fs.Duration("timeout", 0, "override configured timeout (e.g. 30s)")
	xfoilFlag := fs.String("xfoil", "", "override configured XFOIL executable")
	_ = fs.Parse(args)

	req := workflow.PolarRequest{
		NACA:        *nacaFlag,
		AirfoilFile: *airfoilFlag,
		Re:          *reFlag,
		Mach:        *machFlag,
		Iter:        *iterFlag,
		Ncrit:       *ncritFlag,
		AlphaStart:  *fromFlag,
		AlphaEnd:    *toFlag,
		AlphaStep:   *stepFlag,
		Output:      *outFlag,
	}
	if err := req.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "xfman: %v\n", err)
		fs.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eng, err := newEngine(*xfoilFlag, *timeoutFlag)
	if err != nil {
		return err
	}

	rr, err := eng.Polar(ctx, req, 0)
	if rr == nil {
		return err
	}
	if err := printRun(rr, *jsonFlag, *verboseFlag); err != nil {
		return err
	}
	if !rr.Passed() {
		return errFailed
	}
	if !*jsonFlag {
		fmt.Print(formatPolarCLI(rr.Polar))
	}
	return nil
}

func formatPolarCLI(p *polar.Polar) string {
	var b []byte
	w := func(format string, args ...any) {
		b = fmt.Appendf(b, format, args...)
	}

	w("%s  Mach %g  Re %g  Ncrit %g\n\n", p.Airfoil, p.Mach, p.Re, p.Ncrit)
	for _, c := range p.Columns {
		w("%9s", c)
	}
	w("\n")
	for _, row := range p.Rows {
		for _, v := range row {
			w("%9.4f", v)
		}
		w("\n")
	}
	return string(b)
}

// --- inspect ---

func inspectMain(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	sourceFlag := fs.String("source", "", "only diagnostics from this source (command, exit, stderr, output, timeout, malformed, error)")
	tokenFlag := fs.String("token", "", "only diagnostics naming this command token")
	fromFlag := fs.Int("from", 0, "first transcript line to print")
	toFlag := fs.Int("to", 0, "last transcript line to print")
	jsonFlag := fs.Bool("json", false, "output the stored run as JSON")
	_ = fs.Parse(args)

	if fs.NArg() > 1 {
		fs.Usage()
		os.Exit(2)
	}

	eng, err := newEngine("", 0)
	if err != nil {
		return err
	}

	if fs.NArg() == 0 {
		ids, err := eng.Store.List()
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}

	rr, err := eng.Store.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rr)
	}

	var diagnostics []report.Diagnostic
	if *tokenFlag != "" {
		diagnostics = report.ByToken(rr, *tokenFlag)
	} else {
		diagnostics = report.BySource(rr, *sourceFlag)
	}

	fmt.Printf("%s  %s  %s  %s\n\n", rr.ID, rr.Kind, rr.Status, rr.Started.Local().Format(time.DateTime))
	for _, d := range diagnostics {
		if d.Line > 0 {
			fmt.Printf("  %-10s %4d  %s\n", d.Source, d.Line, d.Message)
		} else {
			fmt.Printf("  %-10s       %s\n", d.Source, d.Message)
		}
	}

	if *fromFlag > 0 || *toFlag > 0 {
		to := *toFlag
		if to == 0 {
			to = math.MaxInt
		}
		fmt.Println()
		start := max(*fromFlag, 1)
		for i, line := range report.TranscriptLines(rr, *fromFlag, to) {
			fmt.Printf("%5d  %s\n", start+i, line)
		}
	}
	return nil
}

// --- shared ---

func printRun(rr *report.RunResult, asJSON, verbose bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rr)
	}
	fmt.Print(formatRunCLI(rr, verbose))
	return nil
}

func formatRunCLI(rr *report.RunResult, verbose bool) string {
	var b []byte
	w := func(format string, args ...any) {
		b = fmt.Appendf(b, format, args...)
	}

	if rr.Passed() {
		w("ok      %s\n", rr.ID)
	} else {
		w("FAIL    %s (%s)\n", rr.ID, rr.Status)
		w("\n%s\n", rr.Error)
	}

	if len(rr.Unrecognized) > 0 {
		w("\n")
		for _, u := range rr.Unrecognized {
			w("  line %d: %s command not recognized\n", u.Line, u.Token)
		}
	}

	if verbose && rr.Stdout != "" {
		w("\n%s", rr.Stdout)
		if !strings.HasSuffix(rr.Stdout, "\n") {
			w("\n")
		}
	}
	if rr.Truncated {
		w("\n(output truncated)\n")
	}
	return string(b)
}

func newEngine(xfoilOverride string, timeoutOverride time.Duration) (*workflow.Engine, error) {
	workspace, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if xfoilOverride != "" {
		loaded.Config.RawBinary = xfoilOverride
	}
	if timeoutOverride > 0 {
		loaded.Config.RawTimeout = timeoutOverride.String()
	}

	return workflow.New(loaded), nil
}
