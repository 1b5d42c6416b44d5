// Command cdfdump inspects a CDF file: its variant, variables,
// attributes and optionally record values, as text or JSON.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/batchatco/go-native-cdf/cdf"
)

func main() {
	var (
		asJSON   bool
		nRecords int64
		verbose  bool
	)

	app := &cli.Command{
		Name:      "cdfdump",
		Usage:     "Inspect the variables and attributes of a CDF file",
		ArgsUsage: "<file.cdf>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "emit the catalogue as JSON",
				Destination: &asJSON,
			},
			&cli.Int64Flag{
				Name:        "records",
				Aliases:     []string{"r"},
				Usage:       "records to print per variable (-1 for all)",
				Value:       0,
				Destination: &nRecords,
			},
			&cli.BoolFlag{
				Name:        "verbose",
				Aliases:     []string{"v"},
				Usage:       "log format details while reading",
				Destination: &verbose,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 1 {
				return cli.Exit("usage: cdfdump [--json] [--records N] <file.cdf>", 2)
			}
			if verbose {
				cdf.SetLogLevel(3)
			}
			return dump(cmd.Args().First(), asJSON, nRecords)
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type variableJSON struct {
	Name           string         `json:"name"`
	Num            int            `json:"num"`
	ZVariable      bool           `json:"z_variable"`
	DataType       string         `json:"data_type"`
	DimSizes       []int          `json:"dim_sizes"`
	RecordVariance bool           `json:"record_variance"`
	RecordCount    int64          `json:"record_count"`
	Summary        string         `json:"summary"`
	Attributes     map[string]any `json:"attributes,omitempty"`
	Records        []any          `json:"records,omitempty"`
}

type contentJSON struct {
	RowMajor         bool             `json:"row_major"`
	Version          string           `json:"version"`
	Encoding         string           `json:"encoding"`
	GlobalAttributes map[string][]any `json:"global_attributes"`
	Variables        []variableJSON   `json:"variables"`
}

func dump(path string, asJSON bool, nRecords int64) error {
	content, err := cdf.OpenContent(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	info := content.Info()

	if asJSON {
		out := contentJSON{
			RowMajor: info.RowMajor,
			Version: fmt.Sprintf("%d.%d.%d",
				info.Version, info.Release, info.Increment),
			Encoding:         info.Encoding.String(),
			GlobalAttributes: map[string][]any{},
		}
		for _, ga := range content.GlobalAttributes() {
			out.GlobalAttributes[ga.Name()] = ga.Entries()
		}
		for _, v := range content.Variables() {
			out.Variables = append(out.Variables, variableJSON{
				Name:           v.Name(),
				Num:            v.Num(),
				ZVariable:      v.IsZVariable(),
				DataType:       v.DataType().String(),
				DimSizes:       v.Shaper().DimSizes(),
				RecordVariance: v.RecordVariance(),
				RecordCount:    v.RecordCount(),
				Summary:        v.Summary(),
				Attributes:     variableAttributes(content, v),
				Records:        readRecords(v, nRecords),
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("File: %s\n", path)
	fmt.Printf("CDF %d.%d.%d | encoding=%s | row_major=%v | checksum=%v\n",
		info.Version, info.Release, info.Increment,
		info.Encoding, info.RowMajor, info.HasChecksum)

	if gas := content.GlobalAttributes(); len(gas) > 0 {
		fmt.Println("\nGlobal attributes:")
		for _, ga := range gas {
			fmt.Printf("  %s = %v\n", ga.Name(), ga.Entries())
		}
	}

	fmt.Printf("\nVariables: %d\n", len(content.Variables()))
	for _, v := range content.Variables() {
		fmt.Printf("  %s: %s\n", v.Name(), v.Summary())
		for name, val := range variableAttributes(content, v) {
			fmt.Printf("    %s = %v\n", name, val)
		}
		for i, rec := range readRecords(v, nRecords) {
			fmt.Printf("    [%d] %v\n", i, rec)
		}
	}
	return nil
}

func variableAttributes(content *cdf.CdfContent, v *cdf.Variable) map[string]any {
	attrs := map[string]any{}
	for _, va := range content.VariableAttributes() {
		if entry := va.Entry(v); entry != nil {
			attrs[va.Name()] = entry
		}
	}
	return attrs
}

func readRecords(v *cdf.Variable, n int64) []any {
	if n == 0 {
		return nil
	}
	if n < 0 || n > v.RecordCount() {
		n = v.RecordCount()
	}
	work := v.CreateRawValueArray()
	records := make([]any, 0, n)
	for i := int64(0); i < n; i++ {
		rec, err := v.ReadShapedRecord(i, false, work)
		if err != nil {
			records = append(records, fmt.Sprint("error: ", err))
			break
		}
		records = append(records, rec)
	}
	return records
}
