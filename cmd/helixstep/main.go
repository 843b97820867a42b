// Command helixstep draws random base-pair step parameters from a curated
// dataset collection and writes them out as CSV, optionally with histogram
// plots, an HTML summary and a recorded sampling run.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/banshee-data/helixmc/internal/helix"
	"github.com/banshee-data/helixmc/internal/helix/monitor"
	"github.com/banshee-data/helixmc/internal/helix/stepdb"
)

var (
	dataFile   = flag.String("data", "", "JSON collection file of step parameters")
	dbFile     = flag.String("db", "", "sqlite step database (alternative to -data)")
	contextArg = flag.String("context", "", "draw only from this context (default: random member per draw)")
	modeArg    = flag.String("mode", "gaussian", "sampling mode: gaussian or empirical")
	draws      = flag.Int("n", 1000, "number of draws")
	seed       = flag.Uint64("seed", 1, "random seed")
	csvOut     = flag.String("csv", "", "write draws to this CSV file")
	plotsDir   = flag.String("plots", "", "write per-parameter histogram PNGs into this directory")
	reportOut  = flag.String("report", "", "write an HTML distribution summary to this file")
	record     = flag.Bool("record", false, "record the run in the step database (requires -db)")
)

func main() {
	flag.Parse()

	mode, err := helix.ParseMode(*modeArg)
	if err != nil {
		log.Fatalf("invalid -mode: %v", err)
	}
	if (*dataFile == "") == (*dbFile == "") {
		log.Fatal("exactly one of -data or -db is required")
	}
	if *record && *dbFile == "" {
		log.Fatal("-record requires -db")
	}
	if *draws <= 0 {
		log.Fatalf("-n must be positive, got %d", *draws)
	}

	src := rand.NewPCG(*seed, *seed<<32|1)

	var (
		agg   *helix.AggregateSampler
		store *stepdb.Store
	)
	if *dataFile != "" {
		agg, err = helix.NewAggregateFromJSON(*dataFile, mode, src)
		if err != nil {
			log.Fatalf("failed to load collection: %v", err)
		}
	} else {
		store, err = stepdb.Open(*dbFile)
		if err != nil {
			log.Fatalf("failed to open step database: %v", err)
		}
		defer store.Close()
		agg, err = store.LoadAggregate(mode, src)
		if err != nil {
			log.Fatalf("failed to load samplers from database: %v", err)
		}
	}
	if agg.Len() == 0 {
		log.Fatal("no contexts loaded")
	}
	log.Printf("Loaded %d contexts: %v (mode=%s)", agg.Len(), agg.Names(), mode)

	if *contextArg != "" {
		if _, err := agg.NameToIndex(*contextArg); err != nil {
			log.Fatalf("unknown -context: %v", err)
		}
	}

	var rec *stepdb.RunRecorder
	if *record {
		source := *dataFile
		if source == "" {
			source = *dbFile
		}
		rec, err = store.StartRun(source, mode)
		if err != nil {
			log.Fatalf("failed to start run: %v", err)
		}
	}

	var writer *csv.Writer
	if *csvOut != "" {
		f, err := os.Create(*csvOut)
		if err != nil {
			log.Fatalf("failed to create CSV file: %v", err)
		}
		defer f.Close()
		writer = csv.NewWriter(f)
		defer writer.Flush()
		if err := writer.Write([]string{"shift", "slide", "rise", "tilt", "roll", "twist",
			"origin_x", "origin_y", "origin_z"}); err != nil {
			log.Fatalf("failed to write CSV header: %v", err)
		}
	}

	dr := monitor.NewDistRecorder()
	if *plotsDir != "" || *reportOut != "" {
		dir := *plotsDir
		if dir == "" {
			dir = os.TempDir()
		}
		if err := dr.Start(dir); err != nil {
			log.Fatalf("failed to start recorder: %v", err)
		}
	}

	for i := 0; i < *draws; i++ {
		var (
			p   helix.StepParams
			o   helix.Vec3
			err error
		)
		name := *contextArg
		if name != "" {
			p, o, _, err = agg.DrawNamed(name)
		} else {
			p, o, _, err = agg.Draw()
		}
		if err != nil {
			if rec != nil {
				rec.Fail(err.Error())
			}
			log.Fatalf("draw %d failed: %v", i, err)
		}

		if name == "" {
			name = "all"
		}
		dr.Record(name, p)
		if rec != nil {
			if err := rec.Record(p); err != nil {
				log.Fatalf("failed to record draw: %v", err)
			}
		}
		if writer != nil {
			row := make([]string, 0, helix.NumParams+3)
			for _, v := range p {
				row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
			}
			for _, v := range o {
				row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
			}
			if err := writer.Write(row); err != nil {
				log.Fatalf("failed to write CSV row: %v", err)
			}
		}
	}
	dr.Stop()

	if rec != nil {
		if err := rec.Complete(); err != nil {
			log.Fatalf("failed to complete run: %v", err)
		}
	}
	if *plotsDir != "" {
		if err := dr.GeneratePlots(); err != nil {
			log.Fatalf("failed to generate plots: %v", err)
		}
		log.Printf("Wrote histograms to %s", *plotsDir)
	}
	if *reportOut != "" {
		if err := dr.WriteSummaryHTML(*reportOut); err != nil {
			log.Fatalf("failed to write report: %v", err)
		}
		log.Printf("Wrote summary to %s", *reportOut)
	}

	mean := agg.Mean()
	fmt.Printf("drew %d samples; aggregate mean: shift=%.4f slide=%.4f rise=%.4f tilt=%.4f roll=%.4f twist=%.4f\n",
		*draws, mean[0], mean[1], mean[2], mean[3], mean[4], mean[5])
}
