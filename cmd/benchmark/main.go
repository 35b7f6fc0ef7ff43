package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
)

const placeholderSuffix = "-timeout.png"

var (
	resolutions = []string{"1024x1024", "1792x1024", "1024x1792"}

	prompts = []string{
		"I want to live in a quiet village on the shore of a clean ocean",
		"My city runs entirely on sunlight and every roof is a garden",
		"I teach robots to paint in a studio on the Moon",
	}
)

func main() {
	endpoint := flag.String("endpoint", "http://localhost:8080/api/story_telling_with_images", "story endpoint")
	userID := flag.String("user", "benchmark", "value of the user id header")
	userHeader := flag.String("user-header", "X-User-Id", "user id header name")
	timeout := flag.Duration("timeout", 2*time.Minute, "per request timeout")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	ctx := context.Background()

	client := &http.Client{Timeout: *timeout}
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set(*userHeader, *userID)

	var results []BenchResult
	for _, res := range resolutions {
		for _, prompt := range prompts {
			r := benchmarkStory(ctx, client, *endpoint, header, StoryRequest{Prompt: prompt, Resolution: res})

			if r.Err != nil {
				logger.Error().Err(r.Err).Str("resolution", res).Msg("request failed")
			} else {
				logger.Info().
					Str("resolution", res).
					Dur("took", r.Duration).
					Bool("placeholder", r.Placeholder).
					Msg("ok")
			}

			results = append(results, r)
		}
	}

	printMarkdown(results)
}

func benchmarkStory(ctx context.Context, client *http.Client, endpoint string, header http.Header, req StoryRequest) BenchResult {
	start := time.Now()

	resp, err := send(ctx, client, endpoint, header, req)

	r := BenchResult{
		Resolution: req.Resolution,
		Prompt:     req.Prompt,
		Duration:   time.Since(start),
		Err:        err,
	}
	if err == nil {
		r.StoryChars = len(resp.Story)
		r.Placeholder = strings.HasSuffix(resp.ImageURL, placeholderSuffix)
	}
	return r
}

func send(ctx context.Context, client *http.Client, endpoint string, header http.Header, req StoryRequest) (*StoryResponse, error) {
	body, err := sonic.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal req: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header = header.Clone()

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status %d: %s",
			resp.StatusCode,
			strings.TrimSpace(string(raw)),
		)
	}

	var out StoryResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func aggregate(results []BenchResult) map[string]Agg {
	m := map[string]Agg{}
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		a := m[r.Resolution]
		a.Count++
		a.Total += r.Duration
		a.StoryChars += r.StoryChars
		if r.Duration > a.Max {
			a.Max = r.Duration
		}
		if r.Placeholder {
			a.Placeholders++
		}
		m[r.Resolution] = a
	}
	return m
}

func printMarkdown(results []BenchResult) {
	fmt.Print("\n## Benchmark Results\n\n")
	fmt.Println("| Resolution | Requests | Placeholders | Avg Time | Max Time | Avg Story Length |")
	fmt.Println("|------------|----------|--------------|----------|----------|------------------|")

	agg := aggregate(results)

	keys := make([]string, 0, len(agg))
	for k := range agg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var total Agg
	for _, res := range keys {
		a := agg[res]
		printRow(res, a)

		total.Count += a.Count
		total.Placeholders += a.Placeholders
		total.Total += a.Total
		total.StoryChars += a.StoryChars
		if a.Max > total.Max {
			total.Max = a.Max
		}
	}

	if total.Count > 0 {
		printRow("**ALL**", total)
	}

	failed := len(results) - total.Count
	if failed > 0 {
		fmt.Printf("\n%d of %d requests failed\n", failed, len(results))
	}
}

func printRow(label string, a Agg) {
	avg := a.Total / time.Duration(a.Count)
	fmt.Printf("| %s | %d | %d | %v | %v | %d chars |\n",
		label,
		a.Count,
		a.Placeholders,
		avg.Round(time.Millisecond),
		a.Max.Round(time.Millisecond),
		a.StoryChars/a.Count,
	)
}
