package judge

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/craftlore/ragcheck/internal/llm"
)

const (
	defaultAttempts  = 3
	defaultBaseDelay = 2 * time.Second
	defaultTimeout   = 15 * time.Second

	// Judge responses are a bare number; a small completion budget keeps
	// verbose models from rambling.
	scoreMaxTokens = 50
)

var numberRe = regexp.MustCompile(`(\d+(\.\d+)?)`)

// Judge invokes an LLM provider with a scoring prompt and extracts a numeric
// score. Failures become sentinel Score states, never Go errors: the caller
// persists what happened and continues.
type Judge struct {
	Provider  llm.Provider
	Attempts  int
	BaseDelay time.Duration
	Timeout   time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func New(provider llm.Provider) *Judge {
	return &Judge{
		Provider:  provider,
		Attempts:  defaultAttempts,
		BaseDelay: defaultBaseDelay,
		Timeout:   defaultTimeout,
	}
}

// Score sends the prompt and returns the tagged result. Each attempt gets its
// own timeout; between attempts the delay starts at BaseDelay and doubles.
func (j *Judge) Score(ctx context.Context, prompt string) Score {
	if j == nil || j.Provider == nil {
		return Transient(errors.New("judge: nil provider"))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	attempts := j.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	delay := j.BaseDelay
	if delay <= 0 {
		delay = defaultBaseDelay
	}
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	doSleep := j.sleep
	if doSleep == nil {
		doSleep = sleepWithContext
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := doSleep(ctx, delay); err != nil {
				return classifyFailure(err)
			}
			delay *= 2
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := j.Provider.Complete(attemptCtx, &llm.Request{
			Messages:  []llm.Message{{Role: "user", Content: prompt}},
			MaxTokens: scoreMaxTokens,
		})
		cancel()
		if err != nil {
			lastErr = err
			continue
		}

		return parseScore(llm.Text(resp))
	}

	return classifyFailure(lastErr)
}

// parseScore extracts a numeric score: a clean float parse first, then the
// first number anywhere in the output, then the parse-failure sentinel.
func parseScore(raw string) Score {
	s := strings.TrimSpace(raw)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return OK(v, raw)
	}
	if m := numberRe.FindString(s); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			return OK(v, raw)
		}
	}
	return ParseFailure(raw)
}

func classifyFailure(err error) Score {
	if err == nil {
		err = errors.New("judge: no attempts made")
	}
	if strings.Contains(strings.ToLower(err.Error()), "resource has been exhausted") {
		return Exhausted(err)
	}
	return Transient(err)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
