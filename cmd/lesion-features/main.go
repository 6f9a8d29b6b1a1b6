package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/ironsheep/lesion-features/internal/batch"
	"github.com/ironsheep/lesion-features/internal/config"
	"github.com/ironsheep/lesion-features/internal/features"
	"github.com/ironsheep/lesion-features/internal/imaging"
	"github.com/ironsheep/lesion-features/internal/labels"
	"github.com/ironsheep/lesion-features/internal/render"
	"github.com/ironsheep/lesion-features/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Configure logging to stderr (stdout carries MCP messages and CSV output)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "lesion-features %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		fmt.Fprintf(stdout, "  OCR backend: %s\n", labels.OCRInfo().Backend)
		return 0
	case "--help", "-h", "help":
		printUsage(stdout)
		return 0
	case "serve":
		err = runServe(args[1:], stderr)
	case "extract":
		err = runExtract(args[1:], stdout, stderr)
	case "masks":
		err = runMasks(args[1:], stdout, stderr)
	case "config":
		err = runConfig(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		printUsage(stderr)
		return 2
	}

	if err == flag.ErrHelp {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "lesion-features - shape and texture descriptors for mammography lesions")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: lesion-features <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  extract    Extract features for every sample of a manifest into CSV")
	fmt.Fprintln(w, "  masks      Write the derived masks of one sample as PNG files")
	fmt.Fprintln(w, "  serve      Run the MCP server over stdin/stdout")
	fmt.Fprintln(w, "  config     Write the default configuration file")
	fmt.Fprintln(w, "  version    Print version information")
	fmt.Fprintln(w, "  help       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'lesion-features <command> -h' for the options of a command.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  LESION_FEATURES_LOG_LEVEL=debug    Enable debug logging")
}

// debugEnabled reports whether debug logging was requested.
func debugEnabled(cfg *config.Config) bool {
	return cfg.Output.Verbose || os.Getenv("LESION_FEATURES_LOG_LEVEL") == "debug"
}

// loadConfig reads the configuration and applies the debug environment
// variable.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if debugEnabled(cfg) {
		cfg.Output.Verbose = true
		log.Printf("lesion-features %s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}
	return cfg, nil
}

// newExtractor builds the extractor described by cfg, attaching the label
// scrubber when annotation removal is enabled.
func newExtractor(cfg *config.Config) (*features.Extractor, *labels.Scrubber) {
	opts := cfg.ExtractorOptions()

	var confirmer labels.Confirmer
	if cfg.Loader.ScrubLabels {
		c, err := labels.NewTesseractConfirmer(cfg.Loader.LabelLanguage)
		if err != nil {
			log.Printf("label OCR unavailable, using the edge heuristic only: %v", err)
		} else {
			confirmer = c
		}
	}
	scrubber := labels.NewScrubber(labels.DefaultDetectOptions(), confirmer)
	scrubber.Verbose = cfg.Output.Verbose
	if cfg.Loader.ScrubLabels {
		opts.Scrubber = scrubber
	}
	return features.NewExtractor(opts), scrubber
}

func runServe(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	extractor, scrubber := newExtractor(cfg)

	srv := server.New(imaging.NewImageCache(cfg.Loader.MaxDimension), extractor, server.Options{
		Version:       Version,
		SampleTimeout: cfg.Processing.SampleTimeout,
		Labels:        scrubber,
		Render:        render.DefaultOptions(),
		Debug:         cfg.Output.Verbose,
	})
	if err := srv.Run(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runExtract(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file")
	manifestPath := fs.String("manifest", "", "CSV manifest with id,image,mask[,label] columns")
	outputPath := fs.String("output", "", "Output CSV file (default: stdout)")
	workers := fs.Int("workers", 0, "Concurrent samples (default: from config)")
	timeout := fs.Duration("timeout", 0, "Per-sample timeout, e.g. 2m (default: from config)")
	gabor := fs.Bool("gabor", false, "Append every Gabor response mean and variance")
	verbose := fs.Bool("verbose", false, "Log every sample")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *manifestPath == "" {
		fs.Usage()
		return fmt.Errorf("-manifest is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *workers > 0 {
		cfg.Processing.Workers = *workers
	}
	if *timeout > 0 {
		cfg.Processing.SampleTimeout = *timeout
	}
	if *gabor {
		cfg.Output.GaborResponses = true
	}
	if *verbose {
		cfg.Output.Verbose = true
	}

	entries, err := batch.ReadManifest(*manifestPath)
	if err != nil {
		return err
	}

	extractor, _ := newExtractor(cfg)
	runner := &batch.Runner{
		Loader:        imaging.NewImageCache(cfg.Loader.MaxDimension),
		Extractor:     extractor,
		Workers:       cfg.Processing.Workers,
		SampleTimeout: cfg.Processing.SampleTimeout,
		Verbose:       cfg.Output.Verbose,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	results := runner.Run(ctx, entries)

	responses := 0
	if cfg.Output.GaborResponses {
		responses = len(extractor.Bank())
	}

	out := stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := batch.WriteCSV(out, results, responses); err != nil {
		return err
	}

	failed := batch.Failed(results)
	log.Printf("extracted %d samples in %s (%d failed)",
		len(results)-failed, time.Since(start).Round(time.Millisecond), failed)
	if failed == len(results) && failed > 0 {
		return fmt.Errorf("all %d samples failed", failed)
	}
	return nil
}

func runMasks(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("masks", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file")
	imagePath := fs.String("image", "", "Scan file")
	maskPath := fs.String("mask", "", "Lesion mask file")
	outputDir := fs.String("output-dir", ".", "Directory for the PNG files")
	id := fs.String("id", "", "File name prefix (default: scan file name)")
	boundary := fs.Bool("boundary", false, "Also draw Canny edges, Hough segments and the snake")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *imagePath == "" || *maskPath == "" {
		fs.Usage()
		return fmt.Errorf("-image and -mask are required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	sample, err := imaging.NewImageCache(cfg.Loader.MaxDimension).LoadSample(*imagePath, *maskPath)
	if err != nil {
		return err
	}

	extractor, _ := newExtractor(cfg)
	var b *features.BoundaryResult
	if *boundary {
		if b, err = extractor.Boundary(sample.Image); err != nil {
			return err
		}
	}

	prefix := *id
	if prefix == "" {
		prefix = strings.TrimSuffix(filepath.Base(*imagePath), filepath.Ext(*imagePath))
	}
	layers := render.Layers(sample.Mask, extractor.Options().Spiculation, b)
	paths, err := render.Export(*outputDir, prefix, sample.Image, layers, render.DefaultOptions())
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(stdout, p)
	}
	return nil
}

func runConfig(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	outputPath := fs.String("output", "lesion-features.yaml", "Where to write the default configuration")
	force := fs.Bool("force", false, "Overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := os.Stat(*outputPath); err == nil && !*force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", *outputPath)
	}
	if err := config.CreateDefaultConfigFile(*outputPath); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote default configuration to %s\n", *outputPath)
	return nil
}
