package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kdduha/storyteller/internal/apperr"
	"github.com/kdduha/storyteller/internal/config"
	"github.com/kdduha/storyteller/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const imageResponseJSON = `{"created": 1700000000, "data": [{"url": "https://images.example.org/abc.png", "revised_prompt": "a scene"}]}`

// recordingClock remembers every timer it hands out so tests can check that
// none is left scheduled.
type recordingClock struct {
	*clockwork.FakeClock

	mu     sync.Mutex
	timers []clockwork.Timer
}

func newRecordingClock() *recordingClock {
	return &recordingClock{FakeClock: clockwork.NewFakeClock()}
}

func (c *recordingClock) AfterFunc(d time.Duration, f func()) clockwork.Timer {
	timer := c.FakeClock.AfterFunc(d, f)
	c.mu.Lock()
	c.timers = append(c.timers, timer)
	c.mu.Unlock()
	return timer
}

// assertNoPendingTimers fails if any timer could still fire. Stop reports
// true only for a timer that was still scheduled.
func (c *recordingClock) assertNoPendingTimers(t *testing.T) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, timer := range c.timers {
		assert.False(t, timer.Stop(), "timer %d still pending", i)
	}
}

func (c *recordingClock) timerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func newImageClient(t *testing.T, handler http.Handler, apiKey string, clock clockwork.Clock) *ImageClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.ImageConfig{
		Provider:        "openai",
		APIKey:          apiKey,
		BaseURL:         srv.URL,
		Model:           "dall-e-3",
		Timeout:         30 * time.Second,
		FallbackBaseURL: "https://example.com",
	}
	return NewImageClient(zerolog.Nop(), NewOpenAIClient(apiKey, srv.URL), cfg, clock)
}

func TestImageClient_Generate_Success(t *testing.T) {
	clock := newRecordingClock()
	stub := &providerStub{t: t, status: http.StatusOK, response: imageResponseJSON}
	client := newImageClient(t, stub, "sk-img", clock)

	img, err := client.Generate(context.Background(), "A city floats above the clouds.", "1792x1024")
	require.NoError(t, err)
	assert.Equal(t, "https://images.example.org/abc.png", img.URL)
	assert.False(t, img.Placeholder)

	req := stub.last.Load()
	require.NotNil(t, req)
	assert.Equal(t, "/images/generations", req.path)
	assert.Equal(t, "Bearer sk-img", req.authorization)
	assert.Equal(t, "dall-e-3", req.body["model"])
	assert.Equal(t, "A vivid, futuristic scene from: A city floats above the clouds.", req.body["prompt"])
	assert.InDelta(t, 1, req.body["n"], 1e-9)
	assert.Equal(t, "1792x1024", req.body["size"])
	assert.Equal(t, "standard", req.body["quality"])
	assert.Equal(t, "url", req.body["response_format"])

	assert.Equal(t, 1, clock.timerCount())
	clock.assertNoPendingTimers(t)
}

func TestImageClient_Generate_ProviderFailure(t *testing.T) {
	clock := newRecordingClock()
	stub := &providerStub{
		t:        t,
		status:   http.StatusBadRequest,
		response: `{"error": {"message": "content policy violation", "type": "invalid_request_error", "code": "content_policy_violation", "param": null}}`,
	}
	client := newImageClient(t, stub, "sk-img", clock)

	img, err := client.Generate(context.Background(), "story", "1024x1024")
	require.Error(t, err)
	assert.Nil(t, img)

	var perr *apperr.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, apperr.KindImage, perr.Kind)
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
	assert.Equal(t, "content policy violation", perr.Message)
	assert.ErrorIs(t, err, apperr.ErrUpstreamImage)
	assert.EqualValues(t, 1, stub.calls.Load())

	clock.assertNoPendingTimers(t)
}

func TestImageClient_Generate_MalformedPayload(t *testing.T) {
	clock := newRecordingClock()
	stub := &providerStub{t: t, status: http.StatusOK, response: `{"created": 1700000000, "data": []}`}
	client := newImageClient(t, stub, "sk-img", clock)

	_, err := client.Generate(context.Background(), "story", "1024x1024")
	require.ErrorIs(t, err, apperr.ErrUpstreamImage)
	assert.Contains(t, err.Error(), "malformed response")

	clock.assertNoPendingTimers(t)
}

func TestImageClient_Generate_TimeoutServesPlaceholder(t *testing.T) {
	clock := newRecordingClock()

	var calls atomic.Int32
	release := make(chan struct{})
	blocking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	client := newImageClient(t, blocking, "sk-img", clock)
	t.Cleanup(func() { close(release) })

	type result struct {
		img *models.Image
		err error
	}
	done := make(chan result, 1)
	go func() {
		img, err := client.Generate(context.Background(), "story", "1024x1792")
		done <- result{img, err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(29 * time.Second)
	select {
	case <-done:
		t.Fatal("returned before the timeout elapsed")
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(time.Second)

	select {
	case res := <-done:
		require.NoError(t, res.err)
		require.NotNil(t, res.img)
		assert.True(t, res.img.Placeholder)
		assert.Equal(t, "https://example.com/fallback-image-1024x1792-timeout.png", res.img.URL)
	case <-ctx.Done():
		t.Fatal("image call did not return after the timeout fired")
	}

	clock.assertNoPendingTimers(t)
}

func TestImageClient_Generate_CallerCancellationIsNotDegraded(t *testing.T) {
	clock := newRecordingClock()

	release := make(chan struct{})
	blocking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	client := newImageClient(t, blocking, "sk-img", clock)
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.Generate(ctx, "story", "1024x1024")
		done <- err
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, apperr.ErrUpstreamImage)
		assert.ErrorIs(t, err, context.Canceled)
	case <-waitCtx.Done():
		t.Fatal("image call did not return after cancellation")
	}

	clock.assertNoPendingTimers(t)
}

func TestImageClient_Generate_Preconditions(t *testing.T) {
	tests := []struct {
		name       string
		apiKey     string
		narrative  string
		resolution string
		check      func(t *testing.T, err error)
	}{
		{
			name: "resolution outside allow-list", apiKey: "sk-img", narrative: "story", resolution: "640x480",
			check: func(t *testing.T, err error) {
				var verr *apperr.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, models.Resolutions, verr.Allowed)
			},
		},
		{
			name: "empty narrative", apiKey: "sk-img", narrative: "  ", resolution: "1024x1024",
			check: func(t *testing.T, err error) {
				assert.True(t, apperr.IsValidation(err))
			},
		},
		{
			name: "missing api key", apiKey: "", narrative: "story", resolution: "1024x1024",
			check: func(t *testing.T, err error) {
				var cerr *apperr.ConfigurationError
				require.ErrorAs(t, err, &cerr)
				assert.Equal(t, "openai", cerr.Provider)
				assert.NotContains(t, err.Error(), "sk-")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newRecordingClock()
			stub := &providerStub{t: t, status: http.StatusOK, response: imageResponseJSON}
			client := newImageClient(t, stub, tt.apiKey, clock)

			img, err := client.Generate(context.Background(), tt.narrative, tt.resolution)
			assert.Nil(t, img)
			tt.check(t, err)
			assert.Zero(t, stub.calls.Load())
			assert.Zero(t, clock.timerCount(), "no timer before preconditions hold")
		})
	}
}

func TestPlaceholderURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/fallback-image-1024x1024-timeout.png", PlaceholderURL("https://cdn.example.com/", "1024x1024"))
}
