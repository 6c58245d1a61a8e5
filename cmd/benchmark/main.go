// Benchmark tool for testing Kestrel against labeled market listings.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/listings.csv -url http://localhost:8080
//
// This tool:
//   1. Reads labeled market listing data (with scam labels)
//   2. Sends each listing to Kestrel for scoring
//   3. Compares Kestrel's high-risk verdict with actual scam labels
//   4. Calculates precision, recall, F1-score, and confusion matrix
//
// Expected CSV columns (header required, case-insensitive):
//   type_id, type_name, region_id, volume, margin_percent,
//   buy_price, sell_price, net_profit, is_scam
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Listing represents a labeled row from the dataset
type Listing struct {
	TypeID        int64
	TypeName      string
	RegionID      int64
	Volume        float64
	MarginPercent float64
	BuyPrice      float64
	SellPrice     float64
	NetProfit     float64
	IsScam        bool
}

// ScoreRequest is the Kestrel API request format
type ScoreRequest struct {
	TypeID        int64   `json:"typeId"`
	TypeName      string  `json:"typeName,omitempty"`
	RegionID      int64   `json:"regionId"`
	Volume        float64 `json:"volume"`
	MarginPercent float64 `json:"marginPercent"`
	BuyPrice      float64 `json:"buyPrice"`
	SellPrice     float64 `json:"sellPrice"`
	NetProfit     float64 `json:"netProfit"`
}

// ScoreResponse is the Kestrel API response format
type ScoreResponse struct {
	AssessmentID string   `json:"assessmentId"`
	Score        int      `json:"score"`
	Level        string   `json:"level"`
	HighRisk     bool     `json:"highRisk"`
	Reasons      []string `json:"reasons"`
}

// Metrics tracks benchmark results
type Metrics struct {
	TruePositives  int64 // Scam flagged high-risk
	FalsePositives int64 // Legit flagged high-risk
	TrueNegatives  int64 // Legit passed
	FalseNegatives int64 // Scam passed (missed scam!)

	TotalProcessed int64
	TotalScams     int64
	TotalLegit     int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	// Parse flags
	csvPath := flag.String("csv", "", "Path to labeled listings CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "Kestrel base URL")
	tenantID := flag.String("tenant", "benchmark-test", "Tenant ID for requests")
	limit := flag.Int("limit", 10000, "Maximum listings to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	scamOnly := flag.Bool("scam-only", false, "Only test scam listings")
	sampleRate := flag.Float64("sample", 1.0, "Sample rate for legit listings (0.0-1.0)")
	verbose := flag.Bool("verbose", false, "Print each listing result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/listings.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║          KESTREL BENCHMARK - Scam Listing Detection           ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("Kestrel URL: %s\n", *baseURL)
	fmt.Printf("Tenant ID:   %s\n", *tenantID)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Printf("Scam Only:   %v\n", *scamOnly)
	fmt.Printf("Sample Rate: %.2f\n", *sampleRate)
	fmt.Println()

	// Check Kestrel is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Kestrel not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Kestrel is running:")
		fmt.Println("  cd kestrel && go run cmd/kestrel/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Kestrel is healthy")

	// Read labeled data
	fmt.Printf("\nReading listings from %s...\n", *csvPath)
	listings, err := readListingsCSV(*csvPath, *limit, *scamOnly, *sampleRate)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d listings\n", len(listings))

	// Count scam vs legit
	scamCount := 0
	for _, l := range listings {
		if l.IsScam {
			scamCount++
		}
	}
	fmt.Printf("  - Scam:  %d (%.2f%%)\n", scamCount, 100*float64(scamCount)/float64(len(listings)))
	fmt.Printf("  - Legit: %d (%.2f%%)\n", len(listings)-scamCount, 100*float64(len(listings)-scamCount)/float64(len(listings)))

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(listings, *baseURL, *tenantID, *workers, *verbose)
	duration := time.Since(startTime)

	// Print results
	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readListingsCSV(path string, limit int, scamOnly bool, sampleRate float64) ([]Listing, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Map column indices
	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	var listings []Listing
	sampleCounter := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		isScam := record[colIndex["is_scam"]] == "1"

		// Apply filters
		if scamOnly && !isScam {
			continue
		}

		// Sample legit listings
		if !isScam && sampleRate < 1.0 {
			sampleCounter++
			if float64(sampleCounter%100)/100.0 >= sampleRate {
				continue
			}
		}

		typeID, _ := strconv.ParseInt(record[colIndex["type_id"]], 10, 64)
		regionID, _ := strconv.ParseInt(record[colIndex["region_id"]], 10, 64)
		volume, _ := strconv.ParseFloat(record[colIndex["volume"]], 64)
		margin, _ := strconv.ParseFloat(record[colIndex["margin_percent"]], 64)
		buyPrice, _ := strconv.ParseFloat(record[colIndex["buy_price"]], 64)
		sellPrice, _ := strconv.ParseFloat(record[colIndex["sell_price"]], 64)
		netProfit, _ := strconv.ParseFloat(record[colIndex["net_profit"]], 64)

		typeName := ""
		if idx, ok := colIndex["type_name"]; ok {
			typeName = record[idx]
		}

		listings = append(listings, Listing{
			TypeID:        typeID,
			TypeName:      typeName,
			RegionID:      regionID,
			Volume:        volume,
			MarginPercent: margin,
			BuyPrice:      buyPrice,
			SellPrice:     sellPrice,
			NetProfit:     netProfit,
			IsScam:        isScam,
		})

		if limit > 0 && len(listings) >= limit {
			break
		}
	}

	return listings, nil
}

func runBenchmark(listings []Listing, baseURL, tenantID string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	// Create work channel
	work := make(chan Listing, 100)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for l := range work {
				start := time.Now()
				result, err := scoreListing(client, baseURL, tenantID, l)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: type %d -> %v\n", l.TypeID, err)
					}
					continue
				}

				// Track actual labels
				if l.IsScam {
					atomic.AddInt64(&metrics.TotalScams, 1)
				} else {
					atomic.AddInt64(&metrics.TotalLegit, 1)
				}

				// Calculate confusion matrix
				predicted := result.HighRisk
				actual := l.IsScam

				if predicted && actual {
					atomic.AddInt64(&metrics.TruePositives, 1)
				} else if predicted && !actual {
					atomic.AddInt64(&metrics.FalsePositives, 1)
				} else if !predicted && !actual {
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				} else { // !predicted && actual
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				if verbose {
					status := "✓"
					if (predicted && !actual) || (!predicted && actual) {
						status = "✗"
					}
					name := l.TypeName
					if name == "" {
						name = strconv.FormatInt(l.TypeID, 10)
					}
					if len(name) > 14 {
						name = name[:14]
					}
					fmt.Printf("%s %-14s | Vol: %10.0f | Margin: %7.1f%% | Scam: %-5v | Kestrel: %-7s (%3d)\n",
						status,
						name,
						l.Volume,
						l.MarginPercent,
						l.IsScam,
						result.Level,
						result.Score,
					)
				}
			}
		}()
	}

	// Send work
	for _, l := range listings {
		work <- l
	}
	close(work)

	// Wait for completion
	wg.Wait()

	return metrics
}

func scoreListing(client *http.Client, baseURL, tenantID string, l Listing) (*ScoreResponse, error) {
	req := ScoreRequest{
		TypeID:        l.TypeID,
		TypeName:      l.TypeName,
		RegionID:      l.RegionID,
		Volume:        l.Volume,
		MarginPercent: l.MarginPercent,
		BuyPrice:      l.BuyPrice,
		SellPrice:     l.SellPrice,
		NetProfit:     l.NetProfit,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result ScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total Scams:      %d\n", m.TotalScams)
	fmt.Printf("   Total Legit:      %d\n", m.TotalLegit)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\n📈 CONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                    HIGH        PASS")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Actual  S  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("           L  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	// Calculate metrics
	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\n🎯 DETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of high-risk flags, how many were actual scams)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of scams, how many did we catch)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct predictions)\n", accuracy)

	// Detection rate analysis
	fmt.Printf("\n🔍 DETECTION ANALYSIS\n")
	if m.TotalScams > 0 {
		detectionRate := float64(m.TruePositives) / float64(m.TotalScams) * 100
		missRate := float64(m.FalseNegatives) / float64(m.TotalScams) * 100
		fmt.Printf("   Scams Detected:    %d / %d (%.2f%%)\n", m.TruePositives, m.TotalScams, detectionRate)
		fmt.Printf("   Scams Missed:      %d / %d (%.2f%%) ⚠️\n", m.FalseNegatives, m.TotalScams, missRate)
	}
	if m.TotalLegit > 0 {
		falseAlarmRate := float64(m.FalsePositives) / float64(m.TotalLegit) * 100
		fmt.Printf("   False Alarms:      %d / %d (%.2f%%)\n", m.FalsePositives, m.TotalLegit, falseAlarmRate)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		tps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f listings/sec\n", tps)
	}

	// Interpretation
	fmt.Printf("\n💡 INTERPRETATION\n")
	if recall >= 0.9 {
		fmt.Println("   ✅ Excellent recall - catching most scams")
	} else if recall >= 0.7 {
		fmt.Println("   ⚠️  Good recall - but missing some scams")
	} else if recall >= 0.5 {
		fmt.Println("   ⚠️  Moderate recall - significant scams being missed")
	} else {
		fmt.Println("   ❌ Poor recall - most scams are being missed!")
	}

	if precision >= 0.5 {
		fmt.Println("   ✅ Good precision - flags are meaningful")
	} else if precision >= 0.2 {
		fmt.Println("   ⚠️  Low precision - many false alarms")
	} else {
		fmt.Println("   ❌ Very low precision - mostly false alarms")
	}

	fmt.Println()
}
