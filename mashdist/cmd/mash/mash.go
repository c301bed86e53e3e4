// Copyright © 2023-2024 The mashdist Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package mash orchestrates the external mash binary to estimate pairwise
// genomic distances between a set of query genomes and a set of reference
// genomes. The binary is treated as a black box: this package prepares and
// caches sketch files, runs the distance comparison, parses the tabular
// output and re-keys the hits by caller-supplied genome ids.
package mash

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/go-logging"
)

// VersionUnknown is returned by Version when the mash binary is missing or
// its version can not be determined.
const VersionUnknown = "unknown"

// DefaultBinary is the name of the mash binary looked up in PATH.
const DefaultBinary = "mash"

// Options control how the mash binary is invoked. The zero value is usable:
// binary defaults to "mash", the executor to SysExecutor{}, and the thread
// count is floored at 1.
type Options struct {
	Binary     string
	Threads    int
	KmerSize   int
	SketchSize int

	// Executor performs the actual process invocations; tests substitute
	// a fake here.
	Executor Executor

	// Log receives informational messages. Optional.
	Log *logging.Logger

	// Progress is called once per genome sketched. Cooperative only,
	// correctness never depends on it. Optional.
	Progress func()
}

func (o *Options) fill() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.Binary == "" {
		o.Binary = DefaultBinary
	}
	if o.Threads < 1 {
		o.Threads = 1
	}
	if o.Executor == nil {
		o.Executor = SysExecutor{}
	}
	return o
}

func (o *Options) infof(format string, args ...interface{}) {
	if o.Log != nil {
		o.Log.Infof(format, args...)
	}
}

// Version returns the version reported by 'mash --version', or
// VersionUnknown if the binary is missing, errors, or prints nothing.
func Version(opt *Options) string {
	opt = opt.fill()
	stdout, _, err := opt.Executor.Run(opt.Binary, "--version")
	v := strings.TrimSpace(stdout)
	if err != nil || v == "" {
		return VersionUnknown
	}
	return v
}

// Info returns the per-genome entries embedded in a sketch file, in the
// order reported by 'mash info -t'.
func Info(path string, opt *Options) ([]InfoEntry, error) {
	opt = opt.fill()
	stdout, stderr, err := opt.Executor.Run(opt.Binary, "info", "-t", path)
	if err != nil {
		return nil, &ExecError{Subcommand: "info", Stderr: stderr, Err: errors.Wrapf(err, "read sketch file %s", path)}
	}

	entries := make([]InfoEntry, 0, 64)
	items := make([]string, 4)
	for _, line := range strings.Split(stdout, "\n") {
		if entry, ok := parseInfoLine(line, &items); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Runner orchestrates sketching and distance estimation for one run.
type Runner struct {
	OutDir string
	Prefix string
	Opt    *Options
}

// NewRunner creates a Runner writing its artifacts to outDir with the
// given file name prefix.
func NewRunner(outDir string, prefix string, opt *Options) *Runner {
	return &Runner{OutDir: outDir, Prefix: prefix, Opt: opt.fill()}
}

// Run sketches the query and reference genome sets (reusing consistent
// existing sketches), computes pairwise distances and returns the hits
// re-keyed by the caller's genome ids:
//
//	result[queryID][refID] = Hit
//
// Pairs absent from the result had no hit within maxMashDist. maxDist and
// maxPValue are passed to 'mash dist'; maxMashDist is applied again when
// reading the result file, independently of maxDist. refDB optionally
// names a reference sketch database reused across runs. Any failure aborts
// the whole run with no partial results.
func (r *Runner) Run(qry map[string]string, ref map[string]string,
	maxDist float64, maxPValue float64, maxMashDist float64, refDB string) (map[string]map[string]Hit, error) {

	qrySketch, err := NewQrySketchFile(qry, r.OutDir, r.Prefix, r.Opt)
	if err != nil {
		return nil, err
	}
	refSketch, err := NewRefSketchFile(ref, r.OutDir, r.Prefix, refDB, r.Opt)
	if err != nil {
		return nil, err
	}

	distFile, err := NewDistanceFile(qrySketch, refSketch, r.OutDir, r.Prefix, maxDist, maxPValue, r.Opt)
	if err != nil {
		return nil, err
	}
	results, err := distFile.Read(maxMashDist)
	if err != nil {
		return nil, err
	}

	// The reference sketch database may have been moved between
	// filesystems since it was built, so paths embedded in it can be
	// stale. Base names remain valid keys into the current reference set.
	currentRef := make(map[string]string, len(ref))
	pathToRef := make(map[string]string, len(ref))
	for id, path := range ref {
		currentRef[filepath.Base(path)] = path
		pathToRef[path] = id
	}
	pathToQry := make(map[string]string, len(qry))
	for id, path := range qry {
		pathToQry[path] = id
	}

	out := make(map[string]map[string]Hit, len(results))
	for qryPath, refHits := range results {
		qryID, ok := pathToQry[qryPath]
		if !ok {
			return nil, errors.Errorf("mash: query %s not found in the input query set", qryPath)
		}
		for refBase, hit := range refHits {
			refPath, ok := currentRef[refBase]
			if !ok {
				return nil, errors.Errorf("mash: reference %s not found in the input reference set", refBase)
			}
			if _, ok = out[qryID]; !ok {
				out[qryID] = make(map[string]Hit, len(refHits))
			}
			out[qryID][pathToRef[refPath]] = hit
		}
	}
	return out, nil
}
