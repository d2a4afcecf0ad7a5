// Command rlds-build converts collected teleoperation episodes into an
// episodic dataset. It crawls the collection roots for successful
// episodes, aligns each trajectory log with its camera recordings,
// encodes the result, and writes one record per episode alongside a
// SQLite manifest of outcomes.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/droid-datasets/rldsbuild/internal/assemble"
	"github.com/droid-datasets/rldsbuild/internal/buildstats"
	"github.com/droid-datasets/rldsbuild/internal/crawl"
	"github.com/droid-datasets/rldsbuild/internal/datasets"
	"github.com/droid-datasets/rldsbuild/internal/manifest"
	"github.com/droid-datasets/rldsbuild/internal/rlds"
	"github.com/droid-datasets/rldsbuild/internal/version"
	"github.com/droid-datasets/rldsbuild/internal/video"
)

var (
	datasetName   = flag.String("dataset", "", "Dataset variant to build (builtin: "+strings.Join(datasets.BuiltinNames(), ", ")+")")
	configPath    = flag.String("config", "", "Optional JSON dataset config file")
	roots         = flag.String("roots", "", "Comma-separated collection roots (used when the dataset defines none)")
	outDir        = flag.String("out", "out", "Output directory for episode records")
	dbPath        = flag.String("db", "build_manifest.db", "Path to the build manifest database")
	seed          = flag.Int64("seed", 1, "Base random seed for subsampling")
	workers       = flag.Int("workers", 4, "Concurrent episode builds")
	samples       = flag.Int("samples", 0, "Max timesteps kept per episode (0 keeps all)")
	filterSkipped = flag.Bool("filter-skipped", false, "Drop timesteps where movement was disabled")
	noVideo       = flag.Bool("no-video", false, "Skip camera recordings, emit low-dimensional data only")
	frameSkip     = flag.Int("frameskip", 1, "Keep every n-th timestep at encode time")
)

func main() {
	flag.Parse()
	if *datasetName == "" {
		flag.Usage()
		os.Exit(2)
	}
	log.Printf("rlds-build %s", version.String())

	if err := run(); err != nil {
		log.Fatalf("build failed: %v", err)
	}
}

func run() error {
	var configured map[string]datasets.Dataset
	if *configPath != "" {
		var err error
		configured, err = datasets.Load(nil, *configPath)
		if err != nil {
			return err
		}
	}

	var flagRoots []string
	for _, r := range strings.Split(*roots, ",") {
		if r = strings.TrimSpace(r); r != "" {
			flagRoots = append(flagRoots, r)
		}
	}
	ds, err := datasets.Resolve(configured, *datasetName, flagRoots)
	if err != nil {
		return err
	}

	crawler := crawl.New(nil)
	dirs, err := crawler.Crawl(ds.Roots)
	if err != nil {
		return err
	}
	episodes := crawler.FilterEligible(dirs)
	log.Printf("found %d episode directories, %d eligible", len(dirs), len(episodes))
	if len(episodes) == 0 {
		return fmt.Errorf("no eligible episodes under %v", ds.Roots)
	}

	db, err := manifest.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runID, err := db.BeginRun(ds.Name, *seed)
	if err != nil {
		return err
	}
	log.Printf("run %s: building dataset %s into %s", runID, ds.Name, *outDir)

	writer, err := rlds.NewDirectoryWriter(nil, *outDir)
	if err != nil {
		return err
	}
	defer writer.Close()

	encoder := &rlds.Encoder{
		Identities:        ds.Cameras,
		InstructionFormat: ds.InstructionFormat,
		FrameSkip:         *frameSkip,
	}

	var mu sync.Mutex // serializes writer and manifest records
	var g errgroup.Group
	g.SetLimit(*workers)

	for i, dir := range episodes {
		i, dir := i, dir
		g.Go(func() error {
			start := time.Now()
			rec, steps, err := buildEpisode(dir, ds, encoder, int64(i))

			mu.Lock()
			defer mu.Unlock()

			status := manifest.StatusOK
			errMsg := ""
			switch {
			case err != nil:
				// One broken episode never aborts the run.
				status = manifest.StatusFailed
				errMsg = err.Error()
				log.Printf("episode %s failed: %v", dir, err)
			case rec == nil:
				status = manifest.StatusSkipped
				log.Printf("episode %s has no usable timesteps, skipping", dir)
			default:
				if steps.truncated {
					status = manifest.StatusTruncated
				}
				if werr := writer.WriteEpisode(rec); werr != nil {
					return werr
				}
			}
			return db.RecordEpisode(runID, crawl.LogPath(dir), status, steps.count, time.Since(start), errMsg)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := db.FinishRun(runID); err != nil {
		return err
	}

	summary, err := db.Summary(runID)
	if err != nil {
		return err
	}
	log.Printf("run %s done: ok=%d truncated=%d skipped=%d failed=%d, %d records written",
		runID, summary[manifest.StatusOK], summary[manifest.StatusTruncated],
		summary[manifest.StatusSkipped], summary[manifest.StatusFailed], writer.Count())

	counts, err := db.StepCounts(runID)
	if err != nil {
		return err
	}
	log.Printf("run %s stats: %s", runID, buildstats.Summarize(counts))
	return nil
}

type episodeShape struct {
	count     int
	truncated bool
}

// buildEpisode assembles and encodes one episode directory. The ordinal
// derives a per-episode seed from the base seed, keeping subsampling
// reproducible regardless of worker scheduling.
func buildEpisode(dir string, ds datasets.Dataset, encoder *rlds.Encoder, ordinal int64) (*rlds.EpisodeRecord, episodeShape, error) {
	opts := assemble.Options{
		SamplesPerTrajectory: *samples,
		RemoveSkippedSteps:   *filterSkipped,
		ReadOptions: map[video.Role]video.ReadOptions{
			video.RoleWrist:  {DecodeImage: true},
			video.RoleStatic: {DecodeImage: true},
		},
	}
	if *samples > 0 {
		opts.Rand = rand.New(rand.NewSource(*seed + ordinal))
	}

	cameraDir := crawl.RecordingsPath(dir)
	if *noVideo {
		cameraDir = ""
	}

	ep, err := assemble.Assemble(crawl.LogPath(dir), cameraDir, ds.Cameras, opts)
	if err != nil {
		return nil, episodeShape{}, err
	}
	shape := episodeShape{count: len(ep.Steps), truncated: ep.Truncated}

	rec, err := encoder.Encode(ep)
	if err != nil {
		return nil, shape, err
	}
	return rec, shape, nil
}
