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
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/shenwei356/util/pathutil"
	"gopkg.in/yaml.v2"
)

// SketchDBVersion is the version of the sketch database sidecar file.
const SketchDBVersion uint8 = 1

// sketchDBInfoExt is appended to the sketch database path to name the
// sidecar, e.g. refs.msh -> refs.msh.yml.
const sketchDBInfoExt = ".yml"

// SketchDBInfo is the sidecar metadata written next to a reference sketch
// database, recording the parameters it was built with. 'mash info' does
// not expose k-mer size and sketch size per database, so without the
// sidecar a cached database built with different parameters would be
// reused silently.
type SketchDBInfo struct {
	Version    uint8 `yaml:"version"`
	K          int   `yaml:"k"`
	SketchSize int   `yaml:"sketchSize"`
	Genomes    int   `yaml:"genomes"`
}

func (i SketchDBInfo) String() string {
	return fmt.Sprintf("sketch database (v%d): k: %d, sketch size: %d, genomes: %d",
		i.Version, i.K, i.SketchSize, i.Genomes)
}

// LoadSketchDBInfo reads the sidecar of the sketch database at dbPath.
// ok is false when no sidecar exists.
func LoadSketchDBInfo(dbPath string) (info SketchDBInfo, ok bool, err error) {
	file := dbPath + sketchDBInfoExt
	existed, err := pathutil.Exists(file)
	if err != nil || !existed {
		return info, false, err
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return info, false, errors.Wrapf(err, "read sketch database info file %s", file)
	}
	if err = yaml.Unmarshal(data, &info); err != nil {
		return info, false, errors.Wrapf(err, "unmarshal sketch database info file %s", file)
	}
	return info, true, nil
}

func writeSketchDBInfo(dbPath string, opt *Options, nGenomes int) error {
	info := SketchDBInfo{
		Version:    SketchDBVersion,
		K:          opt.KmerSize,
		SketchSize: opt.SketchSize,
		Genomes:    nGenomes,
	}
	data, err := yaml.Marshal(info)
	if err != nil {
		return errors.Wrap(err, "marshal sketch database info")
	}
	file := dbPath + sketchDBInfoExt
	if err = os.WriteFile(file, data, 0644); err != nil {
		return errors.Wrapf(err, "write sketch database info file %s", file)
	}
	return nil
}

func checkSketchDBInfo(dbPath string, opt *Options) error {
	info, ok, err := LoadSketchDBInfo(dbPath)
	if err != nil {
		return err
	}
	if !ok { // sketch built outside of this tool, nothing to check against
		return nil
	}
	if info.K != opt.KmerSize || info.SketchSize != opt.SketchSize {
		return errors.Wrapf(ErrDBParamMismatch,
			"%s was built with k %d and sketch size %d, requested k %d and sketch size %d",
			dbPath, info.K, info.SketchSize, opt.KmerSize, opt.SketchSize)
	}
	opt.infof("reusing %s", info)
	return nil
}
