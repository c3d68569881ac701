// Command register runs a rigid point-cloud registration and writes the
// resulting transform (and optionally the aligned cloud and debug output).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kwv/fourpcs/export"
	"github.com/kwv/fourpcs/objio"
	"github.com/kwv/fourpcs/registration"
	"github.com/kwv/fourpcs/render"
)

var (
	referenceFile = flag.String("p", "", "reference point cloud (OBJ-like)")
	movingFile    = flag.String("q", "", "moving point cloud to align onto the reference (OBJ-like)")
	optionsFile   = flag.String("options", "", "path to a YAML options file (default: built-in defaults)")
	outMatrix     = flag.String("out", "transform.txt", "output path for the recovered transform (POLYWORKS convention)")
	outCloud      = flag.String("out-cloud", "", "optional path to write the aligned moving cloud")
	outGeoJSON    = flag.String("out-geojson", "", "optional path to write a GeoJSON debug dump of the run")
	outPNG        = flag.String("out-png", "", "optional path to write a PNG scatter render of the run")
	verbose       = flag.Bool("verbose", false, "log per-trial progress")
)

func main() {
	flag.Parse()

	if *referenceFile == "" || *movingFile == "" {
		fmt.Fprintln(os.Stderr, "usage: register -p reference.obj -q moving.obj")
		os.Exit(2)
	}

	p, err := objio.ReadPoints(*referenceFile)
	if err != nil {
		log.Fatalf("[4PCS] reading reference cloud: %v", err)
	}
	q, err := objio.ReadPoints(*movingFile)
	if err != nil {
		log.Fatalf("[4PCS] reading moving cloud: %v", err)
	}

	opts := registration.DefaultOptions()
	if *optionsFile != "" {
		loaded, err := registration.LoadOptions(*optionsFile)
		if err != nil {
			log.Fatalf("[4PCS] loading options: %v", err)
		}
		opts = *loaded
	}

	driver := registration.NewDriver(opts)
	visitor := &logVisitor{verbose: *verbose}

	timeout := time.Duration(opts.MaxTimeSeconds*2+5) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	transform, lcp, err := driver.ComputeTransformation(ctx, p, q, registration.UniformSampler{}, visitor)
	if err != nil {
		log.Fatalf("[4PCS] registration failed: %v", err)
	}
	log.Printf("[4PCS] best LCP=%.4f", lcp)

	if err := objio.WriteMatrix(*outMatrix, transform); err != nil {
		log.Fatalf("[4PCS] writing transform: %v", err)
	}

	aligned := registration.TransformPoints(q, transform)
	if *outCloud != "" {
		if err := objio.WritePoints(*outCloud, aligned); err != nil {
			log.Fatalf("[4PCS] writing aligned cloud: %v", err)
		}
	}

	if *outGeoJSON != "" {
		var base, quad [4]registration.Point
		if err := export.WriteRun(*outGeoJSON, p, aligned, base, quad, 0.01); err != nil {
			log.Fatalf("[4PCS] writing GeoJSON debug dump: %v", err)
		}
	}

	if *outPNG != "" {
		if err := writeScatterPNG(*outPNG, p, aligned); err != nil {
			log.Fatalf("[4PCS] writing PNG debug render: %v", err)
		}
	}
}

func writeScatterPNG(path string, p, aligned registration.Cloud) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	scatter := render.NewScatter(p, aligned)
	return scatter.WritePNG(f)
}

// logVisitor logs per-trial progress to stderr via the standard log
// package, matching this codebase's bracketed-tag logging convention.
type logVisitor struct {
	verbose bool
}

func (v *logVisitor) Report(fraction, bestLCP float64, transform registration.Mat4) {
	if fraction < 0 {
		return
	}
	if v.verbose {
		log.Printf("[4PCS] progress=%.2f%% bestLCP=%.4f", fraction*100, bestLCP)
	}
}

func (v *logVisitor) NeedsGlobalTransformation() bool { return true }
