package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/docsage/docsage/internal/types"
	"github.com/docsage/docsage/pkg/chunker"
	"github.com/docsage/docsage/pkg/citations"
	cfgPkg "github.com/docsage/docsage/pkg/config"
	"github.com/docsage/docsage/pkg/ingest"
	"github.com/docsage/docsage/pkg/llm"
	"github.com/docsage/docsage/pkg/pipeline"
	"github.com/docsage/docsage/pkg/store"
	"github.com/docsage/docsage/server"
)

type cliOptions struct {
	configPath string
	ingestList string
	clearFirst bool
	multimodal bool
	serve      bool
}

func main() {
	opts := parseFlags()

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() cliOptions {
	var opts cliOptions

	flag.StringVar(&opts.configPath, "config", "", "Path to config file")
	flag.StringVar(&opts.ingestList, "ingest", "", "Comma-separated files to ingest before the chat loop")
	flag.BoolVar(&opts.clearFirst, "clear", false, "Clear the vector index before ingesting")
	flag.BoolVar(&opts.multimodal, "multimodal", false, "Answer with the vision backend when images are attached")
	flag.BoolVar(&opts.serve, "serve", false, "Run the HTTP/websocket server instead of the chat loop")
	flag.Parse()

	return opts
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(opts cliOptions) error {
	ctx := context.Background()

	config, err := cfgPkg.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("Configuration error: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	if opts.serve {
		srv, err := server.New(ctx, config)
		if err != nil {
			return err
		}
		return srv.ListenAndServe()
	}

	embedder, err := llm.NewEmbedder(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	textGen, err := llm.NewGroqGenerator(config)
	if err != nil {
		return fmt.Errorf("failed to initialize generation backend: %v", err)
	}

	var multimodalGen types.Generator
	if config.Keys.Gemini != "" {
		gemini, err := llm.NewGeminiGenerator(ctx, config)
		if err != nil {
			return fmt.Errorf("failed to initialize multimodal backend: %v", err)
		}
		multimodalGen = gemini
	}

	orchestrator := pipeline.New(textGen, multimodalGen)

	manager := store.NewManager(store.ManagerConfig{
		Backend:    config.Storage.Backend,
		ConnString: config.Storage.URL,
		VectorDim:  config.Storage.VectorDim,
	})
	defer manager.Close()

	location := config.Storage.IndexDir
	if config.Storage.Backend == "pgvector" {
		location = config.Storage.TableName
	}

	if opts.clearFirst {
		if err := manager.Clear(ctx, location); err != nil {
			return fmt.Errorf("failed to clear index: %v", err)
		}
		color.Green("✓ Index cleared")
	}

	ch, err := chunker.NewWithConfig(chunker.Config{
		ChunkSize:    config.Chunking.ChunkSize,
		ChunkOverlap: config.Chunking.ChunkOverlap,
	})
	if err != nil {
		return err
	}

	var sessionImages []string

	if opts.ingestList != "" {
		paths := splitPaths(opts.ingestList)
		sessionImages = append(sessionImages, imagePaths(paths)...)
		if err := ingestFiles(ctx, paths, ch, manager, embedder, location); err != nil {
			return err
		}
	}

	index, err := manager.Load(ctx, location, embedder)
	if err != nil {
		return fmt.Errorf("failed to open index: %v", err)
	}

	color.Cyan("\nAsk questions about your documents (type 'exit' to quit)")
	color.Cyan("Commands: :ingest <files>  :images <files>  :clear")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.ToLower(line) == "exit":
			return nil
		case strings.HasPrefix(line, ":ingest "):
			paths := splitPaths(strings.TrimPrefix(line, ":ingest "))
			sessionImages = append(sessionImages, imagePaths(paths)...)
			if err := ingestFiles(ctx, paths, ch, manager, embedder, location); err != nil {
				color.Red("%v", err)
			}
			continue
		case strings.HasPrefix(line, ":images "):
			sessionImages = splitPaths(strings.TrimPrefix(line, ":images "))
			color.Blue("Attached %d image(s) for multimodal queries", len(sessionImages))
			continue
		case line == ":clear":
			if err := manager.Clear(ctx, location); err != nil {
				color.Red("Failed to clear index: %v", err)
				continue
			}
			index, err = manager.Load(ctx, location, embedder)
			if err != nil {
				return fmt.Errorf("failed to reopen index: %v", err)
			}
			color.Green("✓ Index cleared")
			continue
		}

		spinner := getSpinner(" Searching and generating...")
		answer, err := orchestrator.Answer(ctx, line, index, pipeline.Options{
			TopK:           config.Retrieval.TopK,
			ScoreThreshold: config.Retrieval.ScoreThreshold,
			UseMultimodal:  opts.multimodal,
			Images:         sessionImages,
		})
		spinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error: %v", err)
			continue
		}

		for _, warning := range answer.Warnings {
			color.Yellow("Warning: %s", warning)
		}

		assistantPrompt("\nAssistant (%s): %s\n", answer.UsedModel, answer.AnswerText)

		if len(answer.Sources) > 0 {
			color.Blue("\nSources:")
			for i, source := range answer.Sources {
				fmt.Println(citations.Format(i+1, source, citations.DefaultPreviewLen))
			}
		}
	}

	return nil
}

func ingestFiles(ctx context.Context, paths []string, ch *chunker.Chunker, manager *store.Manager, embedder embeddings.Embedder, location string) error {
	bar := getProgressBar(len(paths), " Indexing documents...")

	var totalChunks int
	var warnings []string
	for _, path := range paths {
		report, err := pipeline.Ingest(ctx, []string{path}, ch, manager, embedder, location)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %v", path, err)
		}
		totalChunks += report.ChunksAdded
		warnings = append(warnings, report.Warnings...)
		bar.Add(1)
	}
	bar.Finish()

	color.Green("\n✓ Indexed %d chunks from %d file(s)", totalChunks, len(paths))
	for _, warning := range warnings {
		color.Yellow("Warning: %s", warning)
	}
	return nil
}

func splitPaths(list string) []string {
	var paths []string
	for _, part := range strings.Split(list, ",") {
		for _, field := range strings.Fields(part) {
			paths = append(paths, field)
		}
	}
	return paths
}

func imagePaths(paths []string) []string {
	var images []string
	for _, path := range paths {
		if ingest.IsImage(path) {
			images = append(images, path)
		}
	}
	return images
}
