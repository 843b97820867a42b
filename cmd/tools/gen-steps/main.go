// Command gen-steps generates a synthetic step parameter collection with
// B-DNA-like moments, for fixtures and demos. Each requested context gets
// rows drawn from a slightly perturbed multivariate Gaussian, written in
// the JSON collection format, or into a step database with -db.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand/v2"
	"os"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/banshee-data/helixmc/internal/helix"
	"github.com/banshee-data/helixmc/internal/helix/stepdb"
)

var (
	output   = flag.String("o", "steps.json", "output path (JSON collection)")
	dbOut    = flag.String("db", "", "also write contexts into this step database")
	contexts = flag.String("contexts", "AA,AT,GC,CG", "comma-separated context names")
	rows     = flag.Int("rows", 200, "rows per context")
	seed     = flag.Uint64("seed", 42, "random seed")
)

// bdnaMean is a canonical B-form step: 3.32 A rise, 34.3 degree twist,
// slight positive roll. Distances in Angstroms, angles in radians.
var bdnaMean = []float64{0, 0, 3.32, 0, 0.095, 0.599}

// bdnaVar are per-parameter variances loosely matching crystal-structure
// spreads.
var bdnaVar = []float64{0.32, 0.45, 0.055, 0.0022, 0.0056, 0.0041}

func main() {
	flag.Parse()

	names := strings.Split(*contexts, ",")
	if len(names) == 0 || *rows < 2 {
		log.Fatal("need at least one context and two rows per context")
	}

	src := rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)
	rng := rand.New(src)

	byName := make(map[string][][]float64, len(names))
	byParams := make(map[string][]helix.StepParams, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			log.Fatal("empty context name")
		}

		// Perturb the canonical moments per context so contexts are
		// distinguishable in downstream tests.
		mean := append([]float64(nil), bdnaMean...)
		mean[helix.Roll] += 0.03 * (rng.Float64() - 0.5)
		mean[helix.Twist] += 0.04 * (rng.Float64() - 0.5)
		cov := mat.NewSymDense(helix.NumParams, nil)
		for i, v := range bdnaVar {
			cov.SetSym(i, i, v*(0.8+0.4*rng.Float64()))
		}

		normal, ok := distmv.NewNormal(mean, cov, src)
		if !ok {
			log.Fatalf("failed to build distribution for %s", name)
		}

		out := make([][]float64, *rows)
		params := make([]helix.StepParams, *rows)
		for i := range out {
			row := normal.Rand(nil)
			out[i] = row
			copy(params[i][:], row)
		}
		byName[name] = out
		byParams[name] = params
		log.Printf("generated %d rows for %s", *rows, name)
	}

	blob, err := json.MarshalIndent(byName, "", " ")
	if err != nil {
		log.Fatalf("failed to marshal collection: %v", err)
	}
	if err := os.WriteFile(*output, blob, 0644); err != nil {
		log.Fatalf("failed to write %s: %v", *output, err)
	}
	log.Printf("wrote %s", *output)

	if *dbOut != "" {
		store, err := stepdb.Open(*dbOut)
		if err != nil {
			log.Fatalf("failed to open step database: %v", err)
		}
		defer store.Close()
		if err := store.Init(); err != nil {
			log.Fatalf("failed to initialise step database: %v", err)
		}
		for _, name := range names {
			name = strings.TrimSpace(name)
			if err := store.SaveContext(name, byParams[name]); err != nil {
				log.Fatalf("failed to save %s: %v", name, err)
			}
		}
		log.Printf("wrote %d contexts to %s", len(names), *dbOut)
	}
}
