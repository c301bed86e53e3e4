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
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	humanize "github.com/dustin/go-humanize"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/spf13/cobra"
	"github.com/twotwotwo/sorts/sortutil"
	"github.com/vbauerster/mpb/v5"
	"github.com/vbauerster/mpb/v5/decor"

	"github.com/microbe-tools/mashdist/mashdist/cmd/mash"
)

var distCmd = &cobra.Command{
	Use:   "dist",
	Short: "Compute mash distances between query and reference genomes",
	Long: `Compute mash distances between query and reference genomes

Query genomes are given as positional arguments, via -q/--query-list, or
via --query-dir; reference genomes via -r/--ref-list or --ref-dir. Genome
ids are derived from file names with sequence extensions trimmed, e.g.
GCF_000005845.2.fna.gz -> GCF_000005845.2.

Sketch files under the output directory are reused when consistent with
the input genomes; with --mash-db the reference sketch database is stored
at the given path and shared across runs. Stale sketches are never
overwritten, remove them or choose a new location.

Two distance thresholds apply: -d/--max-dist is passed to 'mash dist'
itself, --max-mash-dist is applied again when reading its output. The
stricter one wins.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		timeStart := time.Now()
		defer func() {
			if opt.Verbose {
				log.Infof("elapsed time: %s", time.Since(timeStart))
			}
		}()

		// ---------------------------------------------------------------
		// flags

		outDir := getFlagString(cmd, "out-dir")
		if outDir == "" {
			checkError(fmt.Errorf("flag -O/--out-dir is needed"))
		}
		prefix := getFlagString(cmd, "prefix")
		outFile := getFlagString(cmd, "out-file")

		kmerSize := getFlagPositiveInt(cmd, "kmer-size")
		sketchSize := getFlagPositiveInt(cmd, "sketch-size")
		maxDist := getFlagNonNegativeFloat64(cmd, "max-dist")
		maxPValue := getFlagNonNegativeFloat64(cmd, "max-pvalue")
		maxMashDist := getFlagNonNegativeFloat64(cmd, "max-mash-dist")
		skipFileCheck := getFlagBool(cmd, "skip-file-check")

		mashDB := getFlagString(cmd, "mash-db")
		if mashDB != "" {
			var err error
			mashDB, err = homedir.Expand(mashDB)
			checkError(errors.Wrap(err, "expand --mash-db path"))
		}

		pattern := getFlagString(cmd, "file-regexp")

		// ---------------------------------------------------------------
		// input files

		if opt.Verbose {
			log.Infof("mashdist v%s", VERSION)
			log.Info("checking input files ...")
		}

		qryFiles := getFileList(args, getFlagString(cmd, "query-list"),
			getFlagString(cmd, "query-dir"), pattern, opt.NumCPUs)
		refFiles := getFileList(nil, getFlagString(cmd, "ref-list"),
			getFlagString(cmd, "ref-dir"), pattern, opt.NumCPUs)

		if len(qryFiles) == 0 {
			checkError(fmt.Errorf("no query genome files given"))
		}
		if len(refFiles) == 0 {
			checkError(fmt.Errorf("no reference genome files given, see -r/--ref-list and --ref-dir"))
		}
		sortutil.Strings(qryFiles)
		sortutil.Strings(refFiles)

		qryGenomes, err := genomeMap(qryFiles)
		checkError(err)
		refGenomes, err := genomeMap(refFiles)
		checkError(err)

		if opt.Verbose {
			log.Infof("%s query and %s reference genome file(s) given",
				humanize.Comma(int64(len(qryGenomes))), humanize.Comma(int64(len(refGenomes))))
		}

		if !skipFileCheck {
			checkSeqFiles(qryFiles)
			checkSeqFiles(refFiles)
		}

		checkError(os.MkdirAll(outDir, 0755))

		// ---------------------------------------------------------------
		// log

		if opt.Verbose {
			log.Infof("-------------------- [main parameters] --------------------")
			log.Infof("k: %d", kmerSize)
			log.Infof("sketch size: %d", sketchSize)
			log.Infof("max distance (mash dist -d): %v", maxDist)
			log.Infof("max p-value (mash dist -v): %v", maxPValue)
			log.Infof("max distance when reading results: %v", maxMashDist)
			if mashDB != "" {
				log.Infof("reference sketch database: %s", mashDB)
			}
			log.Infof("mash: %s", mash.Version(&mash.Options{Binary: opt.MashBinary}))
			log.Infof("-------------------- [main parameters] --------------------")
		}

		// ---------------------------------------------------------------
		// run

		// process bar, advanced once per sketched genome. Cached sketches
		// advance nothing, so the bar is force-completed after the run.
		var pbs *mpb.Progress
		var bar *mpb.Bar
		var progress func()
		if opt.Verbose {
			pbs = mpb.New(mpb.WithWidth(79), mpb.WithOutput(os.Stderr))
			bar = pbs.AddBar(int64(len(qryGenomes)+len(refGenomes)),
				mpb.BarStyle("[=>-]<+"),
				mpb.PrependDecorators(
					decor.Name("sketching genomes: ", decor.WC{W: len("sketching genomes: "), C: decor.DidentRight}),
					decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(
					decor.Percentage(decor.WC{W: 5}),
				),
			)
			progress = func() { bar.Increment() }
		}

		mashOpt := &mash.Options{
			Binary:     opt.MashBinary,
			Threads:    opt.NumCPUs,
			KmerSize:   kmerSize,
			SketchSize: sketchSize,
			Log:        log,
			Progress:   progress,
		}

		runner := mash.NewRunner(outDir, prefix, mashOpt)
		results, err := runner.Run(qryGenomes, refGenomes, maxDist, maxPValue, maxMashDist, mashDB)

		if bar != nil {
			bar.SetTotal(int64(len(qryGenomes)+len(refGenomes)), true)
			pbs.Wait()
		}
		checkError(err)

		// ---------------------------------------------------------------
		// output

		writeResults(outFile, results)

		if opt.Verbose {
			var nHits int
			for _, hits := range results {
				nHits += len(hits)
			}
			log.Infof("%s / %s query genome(s) with at least one hit within distance %v, %s hit(s) in total",
				humanize.Comma(int64(len(results))), humanize.Comma(int64(len(qryGenomes))),
				maxMashDist, humanize.Comma(int64(nHits)))
		}
	},
}

// checkSeqFiles verifies that every file contains at least one FASTA/Q
// record, catching truncated or mistyped inputs before handing the paths
// to mash.
func checkSeqFiles(files []string) {
	seq.ValidateSeq = false
	for _, file := range files {
		fastxReader, err := fastx.NewDefaultReader(file)
		checkError(errors.Wrap(err, file))
		_, err = fastxReader.Read()
		if err != nil {
			checkError(errors.Wrapf(err, "no FASTA/Q records found in %s", file))
		}
	}
}

func writeResults(outFile string, results map[string]map[string]mash.Hit) {
	outfh, gw, w, err := outStream(outFile)
	checkError(err)
	defer func() {
		outfh.Flush()
		if gw != nil {
			gw.Close()
		}
		if w != os.Stdout {
			w.Close()
		}
	}()

	outfh.WriteString("query\treference\tdistance\tp_value\tshared_hashes\n")

	qryIDs := make([]string, 0, len(results))
	for id := range results {
		qryIDs = append(qryIDs, id)
	}
	sortutil.Strings(qryIDs)

	type refHit struct {
		id  string
		hit mash.Hit
	}
	for _, qryID := range qryIDs {
		hits := make([]refHit, 0, len(results[qryID]))
		for refID, hit := range results[qryID] {
			hits = append(hits, refHit{id: refID, hit: hit})
		}
		sort.Slice(hits, func(i, j int) bool {
			if hits[i].hit.Dist != hits[j].hit.Dist {
				return hits[i].hit.Dist < hits[j].hit.Dist
			}
			return hits[i].id < hits[j].id
		})

		for _, h := range hits {
			outfh.WriteString(qryID)
			outfh.WriteString("\t")
			outfh.WriteString(h.id)
			outfh.WriteString("\t")
			outfh.WriteString(strconv.FormatFloat(h.hit.Dist, 'g', -1, 64))
			outfh.WriteString("\t")
			outfh.WriteString(strconv.FormatFloat(h.hit.PValue, 'g', -1, 64))
			outfh.WriteString(fmt.Sprintf("\t%d/%d\n", h.hit.SharedN, h.hit.SharedD))
		}
	}
}

func init() {
	RootCmd.AddCommand(distCmd)

	distCmd.Flags().StringP("query-list", "q", "", "file with one query genome path per line")
	distCmd.Flags().StringP("query-dir", "", "", "directory of query genomes, walked recursively")
	distCmd.Flags().StringP("ref-list", "r", "", "file with one reference genome path per line")
	distCmd.Flags().StringP("ref-dir", "", "", "directory of reference genomes, walked recursively")
	distCmd.Flags().StringP("file-regexp", "", `\.(fa|fna|fasta|fq|fastq)(\.gz)?$`,
		"regular expression for matching genome files in --query-dir/--ref-dir")

	distCmd.Flags().StringP("out-dir", "O", "", "output directory for sketch and distance files")
	distCmd.Flags().StringP("prefix", "", "mashdist", "prefix for files under the output directory")
	distCmd.Flags().StringP("out-file", "o", "-", `output TSV file ("-" for stdout, suffix .gz for gzipped out)`)

	distCmd.Flags().IntP("kmer-size", "k", 16, "k-mer size for sketching")
	distCmd.Flags().IntP("sketch-size", "s", 5000, "maximum number of non-redundant hashes per sketch")
	distCmd.Flags().Float64P("max-dist", "d", 0.1, "maximum distance for mash itself to report")
	distCmd.Flags().Float64P("max-pvalue", "v", 1.0, "maximum p-value for mash itself to report")
	distCmd.Flags().Float64P("max-mash-dist", "", 0.1, "maximum distance to keep when reading mash output")

	distCmd.Flags().StringP("mash-db", "", "", "path of a reference sketch database (.msh) reused across runs")
	distCmd.Flags().BoolP("skip-file-check", "", false, "do not check that input files contain FASTA/Q records")
}
