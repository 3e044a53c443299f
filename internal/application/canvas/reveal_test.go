package canvas

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectReveal(t *testing.T, content string) []string {
	t.Helper()

	engine := NewRevealEngine(time.Microsecond, time.Microsecond)
	var emitted []string
	err := engine.Reveal(context.Background(), content, PaceNormal, func(partial string) error {
		emitted = append(emitted, partial)
		return nil
	})
	require.NoError(t, err)
	return emitted
}

func TestRevealEmitsIncreasingPrefixes(t *testing.T) {
	emitted := collectReveal(t, "alpha beta gamma")
	assert.Equal(t, []string{"alpha", "alpha beta", "alpha beta gamma"}, emitted)
}

func TestRevealLastEmissionEqualsContent(t *testing.T) {
	cases := []string{
		"single",
		"two words",
		"trailing space ",
		"  leading and   irregular\nspacing\t",
		"line one\nline two",
	}
	for _, content := range cases {
		emitted := collectReveal(t, content)
		require.NotEmpty(t, emitted, "content %q", content)
		assert.Equal(t, content, emitted[len(emitted)-1], "content %q", content)

		// 每次发出都是最终内容的前缀，且严格递增
		for i, p := range emitted {
			assert.True(t, strings.HasPrefix(content, p), "content %q emission %d", content, i)
			if i > 0 {
				assert.Greater(t, len(p), len(emitted[i-1]), "content %q", content)
			}
		}
	}
}

func TestRevealEmptyContent(t *testing.T) {
	emitted := collectReveal(t, "")
	assert.Equal(t, []string{""}, emitted)
}

func TestRevealCancellation(t *testing.T) {
	engine := NewRevealEngine(50*time.Millisecond, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	var emitted []string
	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.Reveal(ctx, "one two three four five", PaceNormal, func(partial string) error {
			emitted = append(emitted, partial)
			if len(emitted) == 1 {
				cancel()
			}
			return nil
		})
	}()

	err := <-errCh
	assert.True(t, errors.Is(err, context.Canceled))
	// 取消后不再有任何发出
	assert.Len(t, emitted, 1)
	assert.Equal(t, "one", emitted[0])
}

func TestRevealEmitErrorAborts(t *testing.T) {
	engine := NewRevealEngine(time.Microsecond, time.Microsecond)
	boom := errors.New("client gone")

	count := 0
	err := engine.Reveal(context.Background(), "a b c", PaceFast, func(string) error {
		count++
		if count == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, count)
}

func TestRevealFirstTokenImmediate(t *testing.T) {
	// normal 延迟很大，但第一个词必须立即发出
	engine := NewRevealEngine(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 1)
	go func() {
		_ = engine.Reveal(ctx, "first second", PaceNormal, func(partial string) error {
			got <- partial
			cancel()
			return nil
		})
	}()

	select {
	case partial := <-got:
		assert.Equal(t, "first", partial)
	case <-time.After(time.Second):
		t.Fatal("first token was not emitted immediately")
	}
}

func TestTokenBoundaries(t *testing.T) {
	assert.Equal(t, []int{5, 10, 16}, tokenBoundaries("alpha beta gamma"))
	assert.Equal(t, []int{1}, tokenBoundaries("x"))
	assert.Equal(t, []int{0}, tokenBoundaries(""))
	assert.Equal(t, []int{3}, tokenBoundaries("   "))
	assert.Equal(t, []int{1, 4}, tokenBoundaries("a b "))
}
