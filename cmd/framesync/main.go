package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/framesync/internal/config"
	"github.com/banshee-data/framesync/internal/db"
	"github.com/banshee-data/framesync/internal/fsutil"
	"github.com/banshee-data/framesync/internal/synchro/diag"
	"github.com/banshee-data/framesync/internal/version"
)

var (
	tracePath     = flag.String("trace", "", "Raw photodiode trace, one sample per line (required)")
	referencePath = flag.String("reference", "", "Reference stimulus JSON with intensity, marker and optional shader")
	stimListPath  = flag.String("stim-list", "", "JSON array of stimulus identifiers; classifies on/off runs instead of correcting")
	configPath    = flag.String("config", "", "Path to JSON tuning config (defaults apply to omitted keys)")
	dbPath        = flag.String("db", "", "SQLite database for correction audit records (disabled when empty)")
	outPath       = flag.String("out", "-", "Where to write the JSON report (- for stdout)")
	plotPath      = flag.String("plot", "", "Write an inter-frame interval plot (.png, .svg or .pdf)")
	chartPath     = flag.String("chart", "", "Write an HTML chart comparing reference, recorded and corrected levels")
	startSample   = flag.Int("start-sample", -1, "Estimated sample index of the stimulus start; enables the start search")
	searchFrames  = flag.Int("search", 1000, "Frames searched on each side of -start-sample")
	showMatch     = flag.Bool("match", false, "Print reference, recorded and corrected levels side by side to stderr")
	versionFlag   = flag.Bool("version", false, "Print version information and exit")
)

var files fsutil.FileSystem = fsutil.OSFileSystem{}

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("framesync %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if *tracePath == "" {
		log.Fatal("-trace is required")
	}
	if *referencePath != "" && *stimListPath != "" {
		log.Fatal("-reference and -stim-list are mutually exclusive")
	}

	cfg := config.EmptySyncConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadSyncConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	in := inputs{startSample: *startSample, search: *searchFrames}
	var err error
	if in.trace, err = readTrace(files, *tracePath); err != nil {
		log.Fatalf("Failed to read trace: %v", err)
	}
	if *referencePath != "" {
		if in.reference, err = readStimulus(files, *referencePath); err != nil {
			log.Fatalf("Failed to read reference: %v", err)
		}
	}
	if *stimListPath != "" {
		if in.stimList, err = readStimList(files, *stimListPath); err != nil {
			log.Fatalf("Failed to read stimulus list: %v", err)
		}
	}

	res, err := runPipeline(cfg, in)
	if err != nil {
		log.Fatalf("Synchronisation failed: %v", err)
	}
	log.Printf("detected %d frames, %d timing anomalies", res.detection.Len(), len(res.detection.Anomalies))

	if err := writeJSON(files, *outPath, res.report()); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}

	if *plotPath != "" {
		if err := writePlot(*plotPath, res); err != nil {
			log.Printf("failed to plot intervals: %v", err)
		}
	}

	if res.correction == nil {
		return
	}
	log.Printf("%s correction: %d edits, %d replacements, %d unresolved",
		res.correction.Strategy, len(res.correction.Edits), len(res.correction.Replacements), len(res.correction.Unresolved))

	if *showMatch {
		if err := diag.RenderMatch(os.Stderr, 0, in.reference.Marker, res.recorded, res.correction.Stimulus.Marker, diag.DefaultLineLen); err != nil {
			log.Printf("failed to render match: %v", err)
		}
	}

	if *chartPath != "" {
		if err := writeChart(*chartPath, in.reference.Marker, res.recorded, res.correction.Stimulus.Marker); err != nil {
			log.Printf("failed to write chart: %v", err)
		}
	}

	if *dbPath != "" {
		if err := storeRun(*dbPath, cfg, res); err != nil {
			log.Fatalf("Failed to store correction run: %v", err)
		}
	}
}

func writeChart(path string, reference, recorded, corrected []int) error {
	f, err := files.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return diag.RenderComparisonChart(f, reference, recorded, corrected, filepath.Base(*tracePath))
}

// writePlot picks the image format from the file extension.
func writePlot(path string, res *pipelineResult) error {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format == "" {
		return fmt.Errorf("plot path %q has no extension", path)
	}
	f, err := files.Create(path)
	if err != nil {
		return err
	}
	if err := diag.WriteIntervals(f, format, res.detection.Timepoints, res.detection.Anomalies); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func storeRun(path string, cfg *config.SyncConfig, res *pipelineResult) error {
	dbConn, err := db.NewDB(path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer dbConn.Close()

	params, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	run := res.auditRecord(*tracePath, *referencePath, params)
	if err := db.NewCorrectionRunStore(dbConn).Insert(run, res.correction.Edits, res.correction.Replacements); err != nil {
		return err
	}
	log.Printf("stored correction run %s", run.RunID)
	return nil
}
