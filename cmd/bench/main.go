package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/projctx"
)

func main() {
	count := flag.Int("count", 1000, "Number of notes to generate")
	data := flag.Int("data", 200, "Number of CSV files to generate")
	backend := flag.String("backend", "fs", "Content backend: fs or sqlite")
	concurrency := flag.Int("concurrency", 8, "Files parsed at once")
	keep := flag.Bool("keep", false, "Keep the benchmark vault after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "projctx_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	fmt.Printf("Generating %d notes and %d CSV files in %s...\n", *count, *data, benchDir)
	startGen := time.Now()
	notesDir := filepath.Join(benchDir, "bench")
	if err := os.MkdirAll(notesDir, 0755); err != nil {
		panic(err)
	}
	for i := 0; i < *count; i++ {
		content := fmt.Sprintf("---\ntitle: Note %d\ntags: [benchmark]\n---\n# Benchmark Note %d\nThis is a test note.", i, i)
		if err := os.WriteFile(filepath.Join(notesDir, fmt.Sprintf("note_%d.md", i)), []byte(content), 0644); err != nil {
			panic(err)
		}
	}
	for i := 0; i < *data; i++ {
		content := fmt.Sprintf("id,name,score\n%d,row %d,%d\n%d,row %d,%d\n", i, i, i*2, i+1, i+1, i*3)
		if err := os.WriteFile(filepath.Join(notesDir, fmt.Sprintf("data_%d.csv", i)), []byte(content), 0644); err != nil {
			panic(err)
		}
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	project := projctx.Project{
		ID:            "bench",
		Name:          "Bench",
		ContextSource: projctx.ContextSource{Inclusions: "bench/**"},
	}
	open := func() *projctx.App {
		app, err := projctx.New(benchDir,
			projctx.WithLogger(logger),
			projctx.WithAutoInit(true),
			projctx.WithContentBackend(*backend),
			projctx.WithConcurrency(*concurrency),
			projctx.WithProjects([]projctx.Project{project}),
		)
		if err != nil {
			panic(err)
		}
		return app
	}

	ctx := context.TODO()

	// Run 1: Cold (parses everything)
	fmt.Println("Running LoadContext (Run 1 - Cold)...")
	app := open()
	start := time.Now()
	pc, err := app.Manager.LoadContext(ctx, project)
	if err != nil {
		panic(err)
	}
	cold := time.Since(start)
	fmt.Printf("Run 1 Result: %v (Markdown: %d bytes, Files: %d)\n", cold, len(pc.Markdown), len(pc.Files))
	app.Close()

	// Run 2: Warm, from a new instance to simulate a new CLI run
	fmt.Println("Running LoadContext (Run 2 - Warm)...")
	app = open()
	defer app.Close()
	start = time.Now()
	pc, err = app.Manager.LoadContext(ctx, project)
	if err != nil {
		panic(err)
	}
	warm := time.Since(start)
	fmt.Printf("Run 2 Result: %v (Markdown: %d bytes, Files: %d)\n", warm, len(pc.Markdown), len(pc.Files))

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d notes, %d data files, %s backend):\n", *count, *data, *backend)
	fmt.Printf("  Cold: %v\n", cold)
	fmt.Printf("  Warm: %v\n", warm)
	fmt.Printf("--------------------------------------------------\n")
}
