package main

import "time"

type StoryRequest struct {
	Prompt     string `json:"prompt"`
	Resolution string `json:"resolution"`
}

type StoryResponse struct {
	Story    string `json:"story"`
	ImageURL string `json:"imageUrl"`
}

type BenchResult struct {
	Resolution  string
	Prompt      string
	Duration    time.Duration
	StoryChars  int
	Placeholder bool
	Err         error
}

type Agg struct {
	Count        int
	Placeholders int
	Total        time.Duration
	Max          time.Duration
	StoryChars   int
}
