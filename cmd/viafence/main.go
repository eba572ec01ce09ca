// Command viafence places a via fence around the selected traces of a board
// snapshot and writes the via positions as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/logrusorgru/aurora"

	"pcb-viafence/internal/board"
	"pcb-viafence/internal/clearance"
	"pcb-viafence/internal/config"
	"pcb-viafence/internal/diag"
	"pcb-viafence/internal/engine"
	"pcb-viafence/internal/project"
	"pcb-viafence/internal/trace"
	"pcb-viafence/internal/version"
	"pcb-viafence/internal/via"
)

// options are the command line settings after flag parsing.
type options struct {
	boardPath   string
	projectPath string
	configPath  string
	outPath     string
	writeBoard  string
	debugImage  string
	debugDump   string
	clear       bool
	color       bool

	// Overrides applied on top of the configuration when set.
	net    *string
	viaNet *string
	layer  *string
	rows   *int
	pitch  *float64
	offset *float64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var o options
	flag.StringVar(&o.boardPath, "board", "", "Board snapshot (JSON)")
	flag.StringVar(&o.projectPath, "project", "", "Project file (.vfproj); replaces -board and -config")
	flag.StringVar(&o.configPath, "config", "", "Fence configuration (TOML)")
	flag.StringVar(&o.outPath, "out", "", "Write via JSON here instead of stdout")
	flag.StringVar(&o.writeBoard, "write-board", "", "Save the board with the new vias added")
	flag.StringVar(&o.debugImage, "debug-image", "", "Render fence geometry to a .png or .tif")
	flag.StringVar(&o.debugDump, "debug-dump", "", "Write a JSON debug record of paths, offset, pitch and the raw via positions")
	flag.BoolVar(&o.clear, "clear", false, "Remove vias generated by an earlier run first")
	flag.BoolVar(&o.color, "color", true, "Colored summary")
	net := flag.String("net", "", "Net filter wildcard, e.g. \"RF*\" or \"USB_D[+-]\"")
	viaNet := flag.String("via-net", "", "Net of the placed vias")
	layer := flag.String("layer", "", "Only fence traces on this layer")
	rows := flag.Int("rows", 0, "Fence rows per side")
	pitch := flag.Float64("pitch", 0, "Via pitch in mm")
	offset := flag.Float64("offset", 0, "Fence offset from the trace in mm")
	verbose := flag.Bool("v", false, "Verbose logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Only flags given on the command line override the configuration.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "net":
			o.net = net
		case "via-net":
			o.viaNet = viaNet
		case "layer":
			o.layer = layer
		case "rows":
			o.rows = rows
		case "pitch":
			o.pitch = pitch
		case "offset":
			o.offset = offset
		}
	})

	if o.boardPath == "" && o.projectPath == "" {
		fmt.Println("Usage: viafence -board <board.json> [-config fence.toml] [-net GND*] [-out vias.json]")
		fmt.Println("       viafence -project <file.vfproj>")
		os.Exit(1)
	}

	if *verbose {
		engine.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	if err := run(context.Background(), o, os.Stdout, os.Stderr); err != nil {
		log.Fatalf("viafence: %v", err)
	}
}

// outputVia is one via in the JSON output.
type outputVia struct {
	X   int64 `json:"x"`
	Y   int64 `json:"y"`
	Row int   `json:"row"`
}

// output is the JSON document written by the command.
type output struct {
	Board       string          `json:"board"`
	Units       string          `json:"units"`
	Net         string          `json:"net"`
	NetCode     int             `json:"net_code"`
	ViaDiameter float64         `json:"via_diameter"`
	ViaDrill    float64         `json:"via_drill"`
	FencePaths  int             `json:"fence_paths"`
	Stats       clearance.Stats `json:"stats"`
	Vias        []outputVia     `json:"vias"`
}

// settings resolves the board path, configuration and output path from the
// project or the individual flags.
func settings(o options) (string, config.Config, string, error) {
	boardPath, outPath := o.boardPath, o.outPath
	var cfg config.Config

	switch {
	case o.projectPath != "":
		proj, err := project.Load(o.projectPath)
		if err != nil {
			return "", cfg, "", fmt.Errorf("load project %s: %w", o.projectPath, err)
		}
		boardPath = proj.GetBoardPath(o.projectPath)
		if cfg, err = proj.Config(o.projectPath); err != nil {
			return "", cfg, "", err
		}
		if outPath == "" {
			outPath = proj.GetOutputPath(o.projectPath)
		}
	case o.configPath != "":
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return "", cfg, "", err
		}
	default:
		cfg = config.Default()
	}

	if o.net != nil {
		cfg.Selection.NetFilter = *o.net
	}
	if o.viaNet != nil {
		cfg.Via.Net = *o.viaNet
	}
	if o.layer != nil {
		cfg.Selection.Layer = *o.layer
	}
	if o.rows != nil {
		cfg.Fence.Rows = *o.rows
	}
	if o.pitch != nil {
		cfg.Fence.PitchMM = *o.pitch
	}
	if o.offset != nil {
		cfg.Fence.OffsetMM = *o.offset
	}
	if err := cfg.Validate(); err != nil {
		return "", cfg, "", err
	}
	return boardPath, cfg, outPath, nil
}

func run(ctx context.Context, o options, stdout, stderr io.Writer) error {
	boardPath, cfg, outPath, err := settings(o)
	if err != nil {
		return err
	}

	b, err := board.Load(boardPath)
	if err != nil {
		return fmt.Errorf("load board %s: %w", boardPath, err)
	}
	prof, err := b.Profile()
	if err != nil {
		return err
	}
	log.Printf("Loaded board %s (%s, %d nets, %d tracks, %d arcs)",
		b.Name, prof.Name(), len(b.Nets), len(b.Tracks), len(b.Arcs))

	if o.clear {
		log.Printf("Removed %d previously generated vias", b.RemoveGeneratedVias())
	}

	traces, err := trace.Select(b, cfg.TraceOptions(prof))
	if err != nil {
		return err
	}
	paths := trace.Paths(traces)
	log.Printf("Selected %s", trace.Summary(traces))
	if ext := trace.Extent(traces); !ext.Empty() {
		log.Printf("Fence area %.2f x %.2f mm",
			prof.ToMM(float64(ext.Width())), prof.ToMM(float64(ext.Height())))
	}
	if len(paths) == 0 {
		log.Printf("No traces match net filter %q; nets available: %v",
			cfg.Selection.NetFilter, trace.NetFilterSuggestions(b.NetNames()))
	}

	netCode := 0
	if cfg.Via.Net != "" {
		n, ok := b.NetByName(cfg.Via.Net)
		if !ok {
			return fmt.Errorf("via net %q not found on board %s", cfg.Via.Net, b.Name)
		}
		netCode = n.Code
	}

	// Via size overrides only affect the placed vias, not the board rules.
	sized := *b
	cfg.ApplyVia(&sized.Rules, prof)
	cctx, err := sized.ClearanceContext(netCode, cfg.Clearance.SameNetFloorMM)
	if err != nil {
		return err
	}

	params := cfg.Params(prof.UnitsPerMM())
	pads, tracks, vias := b.Copper(prof.FromMM(cfg.Arc.MaxDeviationMM), cfg.ArcLimits())

	var rec *diag.Recorder
	in := engine.Input{
		Paths:         paths,
		Params:        params,
		Context:       cctx,
		Pads:          pads,
		Tracks:        tracks,
		Vias:          vias,
		SkipClearance: !cfg.Clearance.Enabled,
	}
	if o.debugImage != "" {
		rec = diag.NewRecorder()
		in.Sink = rec
	}

	res, err := engine.Generate(ctx, in)
	if err != nil {
		return err
	}

	out := output{
		Board:       b.Name,
		Units:       prof.Name(),
		Net:         cfg.Via.Net,
		NetCode:     netCode,
		ViaDiameter: cctx.ViaDiameter,
		ViaDrill:    cctx.ViaDrill,
		FencePaths:  res.FencePaths,
		Stats:       res.Stats,
		Vias:        make([]outputVia, len(res.Vias)),
	}
	for i, v := range res.Vias {
		out.Vias[i] = outputVia{X: v.Point.X, Y: v.Point.Y, Row: v.Row}
	}
	if err := writeJSON(outPath, stdout, out); err != nil {
		return err
	}

	if o.writeBoard != "" {
		b.AddVias(res.Vias, cctx)
		if err := b.Save(o.writeBoard); err != nil {
			return fmt.Errorf("save board %s: %w", o.writeBoard, err)
		}
		log.Printf("Saved board with %d new vias to %s", len(res.Vias), o.writeBoard)
	}

	if rec != nil {
		opts := diag.DefaultRenderOptions()
		opts.PointRadius = cctx.ViaDiameter / 2
		if err := diag.SaveImage(o.debugImage, rec.Layers(), opts); err != nil {
			log.Printf("Debug image: %v", err)
		}
	}
	if o.debugDump != "" {
		dump := diag.NewDump(paths, params.Offset, params.Pitch, via.Points(res.Raw))
		if err := dump.Save(o.debugDump); err != nil {
			log.Printf("Debug dump: %v", err)
		}
	}

	printSummary(stderr, aurora.NewAurora(o.color), res)
	return nil
}

func writeJSON(path string, stdout io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printSummary(w io.Writer, au aurora.Aurora, res *engine.Result) {
	fmt.Fprintf(w, "%s %d fence paths, %d candidates\n",
		au.Bold("Fence:"), res.FencePaths, res.Candidates)
	for _, r := range res.Rows {
		fmt.Fprintf(w, "  row %d at offset %.0f: %d paths, %d candidates\n",
			r.Row, r.Offset, r.FencePaths, r.Candidates)
	}
	s := res.Stats
	fmt.Fprintf(w, "%s %s accepted, %s rejected (pad %d, same-net track %d, other track %d, via %d)\n",
		au.Bold("Vias:"), au.Green(s.Accepted), au.Red(s.Rejected()),
		s.Pad, s.SameNetTrack, s.DiffNetTrack, s.ExistingVia)
}
