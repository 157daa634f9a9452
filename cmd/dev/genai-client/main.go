// Dev probe for the content service: runs both pipeline stages against a
// live model and prints the parsed results.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/lessonforge/lessonforge/internal/config"
	"github.com/lessonforge/lessonforge/pkg/genai"
)

func main() {
	var (
		baseURL = flag.String("base-url", "http://localhost:11434", "content service base URL")
		model   = flag.String("model", "deepseek-r1:1.5b", "model name")
		title   = flag.String("title", "Photosynthesis", "topic title to generate")
	)
	flag.Parse()

	cfg := config.EngineConfig{
		BaseURL: *baseURL,
		Model:   *model,
		Timeout: 2 * time.Minute,
		Retries: 1,
	}

	client, err := genai.NewDefaultClient(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	ctx := context.Background()

	if err := client.Health(ctx); err != nil {
		log.Fatalf("health check: %v", err)
	}

	draft, err := client.Generate(ctx, *title)
	if err != nil {
		log.Fatalf("generate: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(draft)

	report, err := client.Validate(ctx, *title, draft)
	if err != nil {
		log.Fatalf("validate: %v", err)
	}
	enc.Encode(report)
}
