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
	"path/filepath"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	prettytable "github.com/tatsushid/go-prettytable"

	"github.com/microbe-tools/mashdist/mashdist/cmd/mash"
)

var sketchInfoCmd = &cobra.Command{
	Use:   "sketch-info",
	Short: "Print information of a mash sketch file",
	Long: `Print information of a mash sketch file

Lists the genomes embedded in a sketch file (.msh) with their hash counts
and sequence lengths, as reported by 'mash info -t'. For reference sketch
databases built by 'mashdist dist --mash-db', the sketching parameters
recorded in the yaml sidecar are printed as well.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		if len(args) != 1 {
			checkError(fmt.Errorf("one sketch file is needed"))
		}
		file := args[0]

		tabular := getFlagBool(cmd, "tabular")
		basename := getFlagBool(cmd, "basename")

		mashOpt := &mash.Options{Binary: opt.MashBinary, Threads: opt.NumCPUs}
		entries, err := mash.Info(file, mashOpt)
		checkError(err)

		if info, ok, err := mash.LoadSketchDBInfo(file); err == nil && ok {
			log.Infof("%s", info)
		}

		if tabular {
			outfh, gw, w, err := outStream("-")
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

			for _, entry := range entries {
				path := entry.Path
				if basename {
					path = filepath.Base(path)
				}
				outfh.WriteString(fmt.Sprintf("%s\t%d\t%d\n", path, entry.Hashes, entry.Length))
			}
			return
		}

		tbl, err := prettytable.NewTable(
			prettytable.Column{Header: "file"},
			prettytable.Column{Header: "hashes", AlignRight: true},
			prettytable.Column{Header: "length", AlignRight: true},
		)
		checkError(err)
		tbl.Separator = "  "

		for _, entry := range entries {
			path := entry.Path
			if basename {
				path = filepath.Base(path)
			}
			tbl.AddRow(
				path,
				humanize.Comma(int64(entry.Hashes)),
				humanize.Comma(int64(entry.Length)),
			)
		}
		os.Stdout.Write(tbl.Bytes())

		log.Infof("%s genome(s) in sketch file %s", humanize.Comma(int64(len(entries))), file)
	},
}

func init() {
	RootCmd.AddCommand(sketchInfoCmd)

	sketchInfoCmd.Flags().BoolP("tabular", "", false, "output in tabular format")
	sketchInfoCmd.Flags().BoolP("basename", "", false, "only output base names of the embedded genome paths")
}
