package bench

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/jsonq/cmd/util"
	"github.com/ValentinKolb/jsonq/lib/common"
	"github.com/ValentinKolb/jsonq/lib/db"
	"github.com/ValentinKolb/jsonq/lib/document"
	"github.com/ValentinKolb/jsonq/lib/engine"
	"github.com/ValentinKolb/jsonq/lib/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	BenchCmd = &cobra.Command{
		Use:     "bench",
		Short:   "Performance testing tool for jsonq store providers",
		Long:    "Runs save, fetch, list and mixed workloads through the engine against one provider and prints the throughput.",
		RunE:    run,
		PreRunE: processBenchConfig,
	}
	benchStore      = "__bench"
	benchProvider   = "mem"
	benchNumThreads = 10
	benchDocs       = 100
	benchSkip       = make([]string, 0)
)

func init() {
	key := "provider"
	BenchCmd.Flags().String(key, "mem", util.WrapString("Name of the registered provider to benchmark (see --providers)"))
	key = "skip"
	BenchCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. save,list)"))
	key = "threads"
	BenchCmd.Flags().Int(key, 10, util.WrapString("Number of goroutines submitting requests"))
	key = "docs"
	BenchCmd.Flags().Int(key, 100, util.WrapString("How many different documents to use for the tests"))
	key = "csv"
	BenchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	benchProvider = viper.GetString("provider")
	benchDocs = max(viper.GetInt("docs"), 1)
	benchNumThreads = max(viper.GetInt("threads"), 1)
	benchSkip = strings.Split(viper.GetString("skip"), ",")
	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	conf, err := util.GetEngineConfig(cmd)
	if err != nil {
		return err
	}

	e, err := engine.New(conf)
	if err != nil {
		return err
	}
	defer e.Close()

	fmt.Println("Performance testing tool for jsonq store providers")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(conf.String())
	fmt.Printf("Provider: %s\nThreads: %d\nDocuments: %d\n", benchProvider, benchNumThreads, benchDocs)
	fmt.Println()

	b := &bencher{engine: e}
	if err := b.provision(benchProvider); err != nil {
		return err
	}

	fmt.Println("starting tests...")
	results := b.runAll()

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, conf); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	if conf.MetricsEnabled {
		fmt.Println()
		e.Database().WriteMetrics(os.Stdout)
	}
	return nil
}

// --------------------------------------------------------------------------
// Benchmarks
// --------------------------------------------------------------------------

type result struct {
	name   string
	result testing.BenchmarkResult
}

type bencher struct {
	engine *engine.Engine
}

// exec runs one request and waits for its response.
func (b *bencher) exec(op string, payload document.Value) (*document.Document, error) {
	request := document.New()
	request.PutString(store.RequestID, op)
	request.PutString(store.RequestOp, op)
	request.PutString(store.RequestStore, benchStore)
	request.Put(store.RequestPayload, payload)

	f, err := b.engine.Exec(request)
	if err != nil {
		return nil, err
	}
	response, failure, ok, err := f.Await(context.Background())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s failed: %s", op, failure)
	}
	return response, nil
}

func (b *bencher) provision(provider string) error {
	schema := document.New()
	schema.PutString(store.SchemaProvider, provider)
	_, err := b.exec(db.OpProvision, document.Object(schema))
	return err
}

func (b *bencher) runAll() []result {
	ids := docIDs()
	save := func(id string) error {
		doc := document.New()
		doc.PutString(store.DefaultIDField, id)
		doc.PutString("name", "bench")
		doc.PutInt("ts", time.Now().UnixNano())
		_, err := b.exec(db.OpSave, document.Object(doc))
		return err
	}

	var results []result
	measure := func(name string, setup func(), op func(counter int) error) {
		r := testing.Benchmark(func(tb *testing.B) {
			if shouldSkip(name) {
				return
			}
			if setup != nil {
				setup()
			}
			tb.SetParallelism(benchNumThreads)
			tb.ResetTimer()
			tb.RunParallel(func(pb *testing.PB) {
				counter := 0
				for pb.Next() {
					if err := op(counter); err != nil {
						fmt.Fprintf(os.Stderr, "(%s) - %v\n", name, err)
					}
					counter++
				}
			})
		})
		results = append(results, result{name: name, result: r})
		printResult(name, r)
	}

	fill := func() {
		for _, id := range ids {
			if err := save(id); err != nil {
				fmt.Fprintf(os.Stderr, "(setup) - %v\n", err)
			}
		}
	}

	measure(db.OpSave, nil, func(counter int) error {
		return save(ids[counter%len(ids)])
	})
	measure(db.OpFetch, fill, func(counter int) error {
		_, err := b.exec(db.OpFetch, document.String(ids[counter%len(ids)]))
		return err
	})
	measure(db.OpList, fill, func(int) error {
		_, err := b.exec(db.OpList, document.Null())
		return err
	})
	measure("mixed", fill, func(counter int) error {
		id := ids[counter%len(ids)]
		var err error
		switch counter % 3 {
		case 0:
			err = save(id)
		case 1:
			_, err = b.exec(db.OpFetch, document.String(id))
			if err != nil && strings.Contains(err.Error(), store.ErrNotFound) {
				err = nil
			}
		case 2:
			_, err = b.exec(db.OpDelete, document.String(id))
		}
		return err
	})
	return results
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	return slices.Contains(benchSkip, test)
}

func docIDs() []string {
	ids := make([]string, benchDocs)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d", benchStore, i)
	}
	return ids
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1)
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []result, config common.EngineConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped", "Provider", "ProviderType", "Threads", "Documents"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, r := range results {
		var nsPerOp, opsPerSec float64
		skipped := "true"
		if r.result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(r.result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			r.name,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			benchProvider,
			string(config.Providers[benchProvider]),
			strconv.Itoa(benchNumThreads),
			strconv.Itoa(benchDocs),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", r.name, err)
		}
	}
	return nil
}
