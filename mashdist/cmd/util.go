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

package cmd

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// filepathTrimExtension returns the base name of a genome file and its
// trimmed sequence extension, e.g. GCF_000005845.2.fna.gz -> GCF_000005845.2.
func filepathTrimExtension(file string) (string, string) {
	base := filepath.Base(file)

	gz := strings.HasSuffix(base, ".gz") || strings.HasSuffix(base, ".GZ")
	if gz {
		base = base[0 : len(base)-3]
	}

	fasta := strings.HasSuffix(base, ".fasta") || strings.HasSuffix(base, ".FASTA")
	fastq := strings.HasSuffix(base, ".fastq") || strings.HasSuffix(base, ".FASTQ")
	var fa, fq, fna bool
	if fasta || fastq {
		base = base[0 : len(base)-6]
	} else {
		fa = strings.HasSuffix(base, ".fa") || strings.HasSuffix(base, ".FA")
		fq = strings.HasSuffix(base, ".fq") || strings.HasSuffix(base, ".FQ")
		fna = strings.HasSuffix(base, ".fna") || strings.HasSuffix(base, ".FNA")
		if fa || fq {
			base = base[0 : len(base)-3]
		} else if fna {
			base = base[0 : len(base)-4]
		}
	}

	var extension string
	switch {
	case fasta:
		extension = ".fasta"
	case fastq:
		extension = ".fastq"
	case fa:
		extension = ".fa"
	case fq:
		extension = ".fq"
	case fna:
		extension = ".fna"
	}
	if gz {
		extension += ".gz"
	}
	return base, extension
}

// genomeMap derives genome ids from file names and returns id -> absolute
// path. Duplicate ids or duplicate base file names within one set are
// rejected: both would make mapping results back to ids ambiguous.
func genomeMap(files []string) (map[string]string, error) {
	genomes := make(map[string]string, len(files))
	bases := make(map[string]string, len(files))
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve genome file path %s", file)
		}

		id, _ := filepathTrimExtension(abs)
		if prev, ok := genomes[id]; ok {
			return nil, errors.Errorf("duplicated genome id %s from files %s and %s", id, prev, abs)
		}
		base := filepath.Base(abs)
		if prev, ok := bases[base]; ok {
			return nil, errors.Errorf("duplicated genome file name %s from %s and %s", base, prev, abs)
		}
		genomes[id] = abs
		bases[base] = abs
	}
	return genomes, nil
}
