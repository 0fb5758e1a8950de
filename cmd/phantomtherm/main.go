package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"phantomtherm/pkg/analysis"
	"phantomtherm/pkg/config"
	"phantomtherm/pkg/fileutil"
	"phantomtherm/pkg/report"
	"phantomtherm/pkg/thermometry"
)

// Supported datasets, named by scanner field strength.
var datasets = map[string]bool{
	"1.5T": true,
	"3T":   true,
}

func main() {
	// Parse command line arguments
	methodName := flag.String("method", string(thermometry.Regionwise),
		"Analysis method: regionwise, voxelwise or regionwise_bootstrap")
	bootstrap := flag.Int("bootstrap", 0,
		"Bootstrap iteration count for regionwise_bootstrap (0 uses the configured default)")
	configPath := flag.String("config", "phantomtherm.yaml", "Path to the YAML configuration file")
	dataRoot := flag.String("data-root", "",
		"Data root directory (overrides project-root discovery)")
	writeConfig := flag.Bool("write-config", false, "Write a default configuration file and exit")
	flag.Usage = usage
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config file: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	// Validate inputs
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	dataset := flag.Arg(0)
	if !datasets[dataset] {
		fmt.Fprintf(os.Stderr, "Error: unknown dataset %q (expected 1.5T or 3T)\n", dataset)
		os.Exit(1)
	}

	method, err := thermometry.ParseMethod(*methodName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dataDir, err := resolveDataDir(cfg, *dataRoot, dataset)
	if err != nil {
		log.Fatalf("Failed to locate data: %v", err)
	}
	if _, err := os.Stat(dataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: data directory not found at %s\n", dataDir)
		os.Exit(1)
	}

	nBootstrap := *bootstrap
	if nBootstrap == 0 {
		nBootstrap = cfg.Thermometry.Bootstrap
	}

	fmt.Println("================================")
	fmt.Println("ETHYLENE GLYCOL PHANTOM MRI THERMOMETRY")
	fmt.Println("================================")
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Printf("Method: %s\n", method)
	if method == thermometry.RegionwiseBootstrap {
		fmt.Printf("Bootstrap iterations: %d\n", nBootstrap)
	}

	pipeline := analysis.NewPipeline(&analysis.Params{
		DataDir:   dataDir,
		Method:    method,
		Bootstrap: nBootstrap,
		Runner:    thermometry.NewCommandRunner(cfg.Thermometry.Command),
		Config:    cfg,
		Logger:    log.New(os.Stderr, "", log.LstdFlags),
	})

	startTime := time.Now()
	if err := pipeline.Process(context.Background()); err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	rows := pipeline.Results()
	base := filepath.Join(dataDir, report.OutputBasename(method))
	if err := report.WriteWorkbook(rows, base+".xlsx"); err != nil {
		log.Fatalf("Failed to write results workbook: %v", err)
	}
	if err := report.SavePlots(rows, base, cfg.Plot.WidthInches, cfg.Plot.HeightInches); err != nil {
		log.Fatalf("Failed to render plots: %v", err)
	}

	fmt.Printf("\nAnalysis completed in %.2f seconds\n", time.Since(startTime).Seconds())
	fmt.Printf("Wrote %d result rows to: %s.xlsx\n", len(rows), base)
	fmt.Printf("Plots saved to: %s.png, %s.svg\n", base, base)
}

// resolveDataDir builds the dataset directory path. With -data-root the
// dataset is looked up directly under it; otherwise the project root is
// discovered by walking up from the working directory for the marker file,
// and the configured data root is resolved against it.
func resolveDataDir(cfg *config.Config, dataRoot, dataset string) (string, error) {
	if dataRoot != "" {
		return filepath.Join(dataRoot, dataset), nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("error getting working directory: %w", err)
	}

	projectRoot, err := fileutil.FindProjectRoot(wd, cfg.Data.MarkerFile)
	if err != nil {
		return "", err
	}

	root := cfg.Data.Root
	if !filepath.IsAbs(root) {
		root = filepath.Join(projectRoot, root)
	}
	return filepath.Join(root, dataset), nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <dataset>\n\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(os.Stderr, "Datasets: 1.5T, 3T")
	fmt.Fprintln(os.Stderr, "\nFlags:")
	flag.PrintDefaults()
}
