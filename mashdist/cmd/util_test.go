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
	"testing"
)

func TestFilepathTrimExtension(t *testing.T) {
	tests := []struct {
		file string
		base string
		ext  string
	}{
		{"/a/GCF_000005845.2.fna.gz", "GCF_000005845.2", ".fna.gz"},
		{"/a/GCF_000005845.2.fna", "GCF_000005845.2", ".fna"},
		{"genome.fasta", "genome", ".fasta"},
		{"genome.fa", "genome", ".fa"},
		{"reads.fastq.gz", "reads", ".fastq.gz"},
		{"reads.fq", "reads", ".fq"},
		{"/a/plain", "plain", ""},
		{"/a/archive.gz", "archive", ".gz"},
	}
	for _, test := range tests {
		base, ext := filepathTrimExtension(test.file)
		if base != test.base || ext != test.ext {
			t.Errorf("filepathTrimExtension(%q) = %q, %q, want %q, %q",
				test.file, base, ext, test.base, test.ext)
		}
	}
}

func TestGenomeMap(t *testing.T) {
	genomes, err := genomeMap([]string{"/a/q1.fna", "/a/q2.fasta.gz"})
	if err != nil {
		t.Fatalf("genomeMap: %v", err)
	}
	if len(genomes) != 2 {
		t.Fatalf("got %d genomes, want 2", len(genomes))
	}
	if genomes["q1"] != filepath.Join("/a", "q1.fna") {
		t.Errorf("unexpected path for q1: %s", genomes["q1"])
	}
	if _, ok := genomes["q2"]; !ok {
		t.Errorf("extension not trimmed from genome id: %+v", genomes)
	}
}

func TestGenomeMapDuplicateID(t *testing.T) {
	// same id from different extensions
	if _, err := genomeMap([]string{"/a/q1.fna", "/b/q1.fasta"}); err == nil {
		t.Error("expected error for duplicated genome id")
	}
}

func TestGenomeMapDuplicateBaseName(t *testing.T) {
	// same base file name in different directories would make base-name
	// keyed results ambiguous
	if _, err := genomeMap([]string{"/a/q1.fna", "/b/q1.fna"}); err == nil {
		t.Error("expected error for duplicated genome file name")
	}
}
