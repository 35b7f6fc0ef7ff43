package service

import (
	"context"
	"sync"

	"github.com/kdduha/storyteller/internal/mode"
	"github.com/kdduha/storyteller/internal/models"
)

// callLog records the order in which fakes were invoked.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeText struct {
	log      *callLog
	reply    string
	err      error
	chunks   []models.StreamChunk
	lastMsgs []models.Message
	lastArgs mode.Parameters
	calls    int
}

func (f *fakeText) Complete(_ context.Context, msgs []models.Message, params mode.Parameters) (string, error) {
	f.calls++
	f.lastMsgs = msgs
	f.lastArgs = params
	if f.log != nil {
		f.log.add("text")
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeText) Stream(_ context.Context, msgs []models.Message, params mode.Parameters) (<-chan models.StreamChunk, error) {
	f.calls++
	f.lastMsgs = msgs
	f.lastArgs = params
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan models.StreamChunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

type fakeImages struct {
	log            *callLog
	image          *models.Image
	err            error
	calls          int
	lastNarrative  string
	lastResolution string
}

func (f *fakeImages) Generate(_ context.Context, narrative, resolution string) (*models.Image, error) {
	f.calls++
	f.lastNarrative = narrative
	f.lastResolution = resolution
	if f.log != nil {
		f.log.add("image")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.image, nil
}

type fakeCache struct {
	data   map[string]string
	getErr error
	sets   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeCache) Set(_ context.Context, key, value string) error {
	f.sets++
	f.data[key] = value
	return nil
}
