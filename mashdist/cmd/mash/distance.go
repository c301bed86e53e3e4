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

package mash

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/shenwei356/breader"
)

// DistanceFileName is the fixed name of the distance result file under
// the output directory. It is recreated on every run.
const DistanceFileName = "mash_distances.tsv"

// DistanceFile is the result of 'mash dist' between a query sketch and a
// reference sketch. Creating it runs the comparison.
type DistanceFile struct {
	Qry  *SketchFile
	Ref  *SketchFile
	Path string

	opt *Options
}

// NewDistanceFile runs 'mash dist' on the two sketches, redirecting its
// tabular stdout to <outDir>/<prefix>.mash_distances.tsv. maxDist and
// maxPValue are passed to the tool as its own reporting thresholds. On a
// nonzero exit the partial result file is removed and an *ExecError with
// the captured stderr is returned.
func NewDistanceFile(qry *SketchFile, ref *SketchFile, outDir string, prefix string,
	maxDist float64, maxPValue float64, opt *Options) (*DistanceFile, error) {

	opt = opt.fill()
	d := &DistanceFile{
		Qry:  qry,
		Ref:  ref,
		Path: filepath.Join(outDir, prefix+"."+DistanceFileName),
		opt:  opt,
	}

	opt.infof("calculating mash distances")

	w, err := os.Create(d.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "create distance result file %s", d.Path)
	}

	// rows are references, columns are queries: reference sketch first
	args := []string{"dist",
		"-p", strconv.Itoa(opt.Threads),
		"-d", strconv.FormatFloat(maxDist, 'f', -1, 64),
		"-v", strconv.FormatFloat(maxPValue, 'f', -1, 64),
		ref.Path, qry.Path}

	stderr, err := opt.Executor.RunStream(w, nil, opt.Binary, args...)
	if errClose := w.Close(); err == nil {
		err = errClose
	}
	if err != nil {
		os.Remove(d.Path)
		return nil, &ExecError{Subcommand: "dist", Stderr: stderr, Err: err}
	}
	return d, nil
}

// Read parses the result file into a sparse two-level mapping
//
//	result[queryID][baseName(refID)] = Hit
//
// keeping only rows with distance <= maxMashDist. This threshold is
// independent of the maxDist passed to 'mash dist'; the stricter of the
// two wins. Lines not matching the expected tab-separated shape are
// silently skipped.
func (d *DistanceFile) Read(maxMashDist float64) (map[string]map[string]Hit, error) {
	type row struct {
		ref string
		qry string
		hit Hit
	}

	pool := &sync.Pool{New: func() interface{} {
		tmp := make([]string, 6)
		return &tmp
	}}

	fn := func(line string) (interface{}, bool, error) {
		items := pool.Get().(*[]string)
		defer pool.Put(items)

		ref, qry, hit, ok := parseDistLine(line, items)
		if !ok {
			return nil, false, nil
		}
		if hit.Dist > maxMashDist {
			return nil, false, nil
		}
		return row{ref: ref, qry: qry, hit: hit}, true, nil
	}

	reader, err := breader.NewBufferedReader(d.Path, d.opt.Threads, 100, fn)
	if err != nil {
		return nil, errors.Wrapf(err, "read distance result file %s", d.Path)
	}

	out := make(map[string]map[string]Hit, len(d.Qry.Genomes))
	for chunk := range reader.Ch {
		if chunk.Err != nil {
			return nil, errors.Wrapf(chunk.Err, "parse distance result file %s", d.Path)
		}
		for _, data := range chunk.Data {
			r := data.(row)
			if _, ok := out[r.qry]; !ok {
				out[r.qry] = make(map[string]Hit, 8)
			}
			out[r.qry][filepath.Base(r.ref)] = r.hit
		}
	}
	return out, nil
}
