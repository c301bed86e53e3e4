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
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/util/pathutil"
	"github.com/shenwei356/xopen"
	"github.com/twotwotwo/sorts/sortutil"
)

// SketchExt is the file extension of mash sketch files.
const SketchExt = ".msh"

// QrySketchName is the fixed name of the query sketch file under the
// output directory.
const QrySketchName = "user_query_sketch.msh"

// RefSketchName is the fixed name of the reference sketch file under the
// output directory, used when no sketch database path is given.
const RefSketchName = "reference_sketch.msh"

// SketchFile is a mash sketch on disk for a set of genomes. It is either
// generated fresh or an existing artifact validated against the genome set
// (Cached reports which).
type SketchFile struct {
	// Genomes maps genome id to sequence file path.
	Genomes map[string]string

	// Path of the sketch file on disk.
	Path string

	// Cached is true when an existing, consistent sketch was reused.
	Cached bool

	// Entries embedded in a reused sketch, keyed by the path recorded at
	// sketching time. Empty for freshly generated sketches.
	Entries map[string]InfoEntry

	opt *Options
}

// NewSketchFile returns a sketch of the given genomes at path. An existing
// file at path is reused after validating that it was generated from the
// same genome set (by base file name; full paths are ignored since sketch
// databases may be relocated between storage backends); a mismatch is an
// error wrapping ErrInconsistentSketch and the file is left untouched.
// Otherwise a new sketch is generated with 'mash sketch'.
func NewSketchFile(genomes map[string]string, path string, opt *Options) (*SketchFile, error) {
	opt = opt.fill()
	s := &SketchFile{Genomes: genomes, Path: path, opt: opt}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "create directory for sketch file %s", path)
		}
	}

	existed, err := pathutil.Exists(path)
	if err != nil {
		return nil, errors.Wrapf(err, "check sketch file %s", path)
	}

	if existed {
		opt.infof("loading data from existing mash sketch file: %s", path)
		entries, err := Info(path, opt)
		if err != nil {
			return nil, err
		}
		s.Entries = make(map[string]InfoEntry, len(entries))
		for _, entry := range entries {
			s.Entries[entry.Path] = entry
		}
		if !consistent(s.Entries, genomes) {
			return nil, errors.Wrapf(ErrInconsistentSketch,
				"%s was not generated from the input genomes, remove the stale sketch file or choose a new output location", path)
		}
		s.Cached = true
		return s, nil
	}

	opt.infof("creating mash sketch file: %s", path)
	if err = s.generate(); err != nil {
		return nil, err
	}
	return s, nil
}

// consistent reports whether the base names of the paths embedded in a
// sketch equal the base names of the genome set's paths.
func consistent(entries map[string]InfoEntry, genomes map[string]string) bool {
	if len(entries) != len(genomes) {
		return false
	}
	embedded := make(map[string]struct{}, len(entries))
	for path := range entries {
		embedded[filepath.Base(path)] = struct{}{}
	}
	for _, path := range genomes {
		if _, ok := embedded[filepath.Base(path)]; !ok {
			return false
		}
	}
	return len(embedded) == len(genomes)
}

func (s *SketchFile) generate() error {
	opt := s.opt

	tmpDir, err := os.MkdirTemp("", "mashdist_sketch_")
	if err != nil {
		return errors.Wrap(err, "create scratch directory")
	}
	defer os.RemoveAll(tmpDir)

	paths := make([]string, 0, len(s.Genomes))
	for _, path := range s.Genomes {
		paths = append(paths, path)
	}
	sortutil.Strings(paths)

	manifest := filepath.Join(tmpDir, "genomes.txt")
	outfh, err := xopen.Wopen(manifest)
	if err != nil {
		return errors.Wrapf(err, "write genome manifest %s", manifest)
	}
	for _, path := range paths {
		outfh.WriteString(path)
		outfh.WriteString("\n")
	}
	if err = outfh.Close(); err != nil {
		return errors.Wrapf(err, "write genome manifest %s", manifest)
	}

	args := []string{"sketch", "-l", "-p", strconv.Itoa(opt.Threads), manifest,
		"-o", s.Path,
		"-k", strconv.Itoa(opt.KmerSize),
		"-s", strconv.Itoa(opt.SketchSize)}

	onLine := func(line string) {
		if opt.Progress != nil && strings.HasPrefix(line, "Sketching") {
			opt.Progress()
		}
	}
	stderr, err := opt.Executor.RunStream(io.Discard, onLine, opt.Binary, args...)

	existed, _ := pathutil.Exists(s.Path)
	if err != nil || !existed {
		if err == nil {
			err = errors.Errorf("output sketch file %s not created", s.Path)
		}
		return &ExecError{Subcommand: "sketch", Stderr: stderr, Err: err}
	}
	return nil
}

// NewQrySketchFile returns the sketch of the query genome set, stored
// under the fixed name <prefix>.user_query_sketch.msh in outDir.
func NewQrySketchFile(genomes map[string]string, outDir string, prefix string, opt *Options) (*SketchFile, error) {
	path := filepath.Join(outDir, prefix+"."+QrySketchName)
	return NewSketchFile(genomes, path, opt)
}

// NewRefSketchFile returns the sketch of the reference genome set. When
// dbPath is non-empty it names a sketch database reused across runs: the
// path is normalized to carry the .msh extension and its parameters are
// recorded in a yaml sidecar checked on reuse. Otherwise the sketch is
// stored under the fixed name <prefix>.reference_sketch.msh in outDir.
func NewRefSketchFile(genomes map[string]string, outDir string, prefix string, dbPath string, opt *Options) (*SketchFile, error) {
	opt = opt.fill()

	if dbPath == "" {
		return NewSketchFile(genomes, filepath.Join(outDir, prefix+"."+RefSketchName), opt)
	}

	path := strings.TrimRight(dbPath, string(os.PathSeparator))
	if !strings.HasSuffix(path, SketchExt) {
		path += SketchExt
	}
	if existed, err := pathutil.DirExists(path); err != nil {
		return nil, errors.Wrapf(err, "check sketch database path %s", path)
	} else if existed {
		return nil, errors.Errorf("sketch database path %s is a directory", path)
	}

	s, err := NewSketchFile(genomes, path, opt)
	if err != nil {
		return nil, err
	}

	if s.Cached {
		err = checkSketchDBInfo(path, opt)
	} else {
		err = writeSketchDBInfo(path, opt, len(genomes))
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
