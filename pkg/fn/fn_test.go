package fn

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResultOkErr(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok should be ok")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatalf("Unwrap: %v %v", v, err)
	}

	e := Err[int](errors.New("boom"))
	if e.IsOk() {
		t.Fatal("Err should not be ok")
	}
	if e.UnwrapOr(7) != 7 {
		t.Fatal("UnwrapOr fallback")
	}
}

func TestFromPair(t *testing.T) {
	if r := FromPair(1, nil); !r.IsOk() {
		t.Fatal("nil error should be Ok")
	}
	if r := FromPair(0, errors.New("x")); !r.IsErr() {
		t.Fatal("non-nil error should be Err")
	}
}

func TestMapResult(t *testing.T) {
	r := MapResult(Ok(2), func(v int) string { return "n" })
	if v, _ := r.Unwrap(); v != "n" {
		t.Fatal("MapResult on Ok")
	}
	e := MapResult(Err[int](errors.New("boom")), func(v int) string { return "n" })
	if _, err := e.Unwrap(); err == nil || err.Error() != "boom" {
		t.Fatal("MapResult should propagate error")
	}
}

func TestThenShortCircuits(t *testing.T) {
	first := func(_ context.Context, v int) Result[int] { return Err[int](errors.New("first")) }
	called := false
	second := func(_ context.Context, v int) Result[string] { called = true; return Ok("x") }

	r := Then(first, second)(context.Background(), 1)
	if r.IsOk() || called {
		t.Fatal("second stage must not run after error")
	}
}

func TestThenChains(t *testing.T) {
	double := MapStage(func(v int) int { return v * 2 })
	str := MapStage(func(v int) string {
		if v == 8 {
			return "eight"
		}
		return "?"
	})
	r := Then(double, str)(context.Background(), 4)
	if v, _ := r.Unwrap(); v != "eight" {
		t.Fatalf("chain result = %q", v)
	}
}

func TestTapStagePassesThrough(t *testing.T) {
	seen := 0
	tap := TapStage(func(_ context.Context, v int) { seen = v })
	r := tap(context.Background(), 9)
	if v, _ := r.Unwrap(); v != 9 || seen != 9 {
		t.Fatal("tap should observe and pass through")
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond}, func(_ context.Context) Result[int] {
		attempts++
		if attempts < 3 {
			return Err[int](errors.New("transient"))
		}
		return Ok(1)
	})
	if !r.IsOk() || attempts != 3 {
		t.Fatalf("retry: ok=%v attempts=%d", r.IsOk(), attempts)
	}
}

func TestRetryExhausts(t *testing.T) {
	attempts := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond}, func(_ context.Context) Result[int] {
		attempts++
		return Err[int](errors.New("always"))
	})
	if r.IsOk() || attempts != 2 {
		t.Fatalf("retry: ok=%v attempts=%d", r.IsOk(), attempts)
	}
}

func TestRetryIfStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	attempts := 0
	r := Retry(context.Background(), RetryOpts{
		MaxAttempts: 5,
		InitialWait: time.Millisecond,
		RetryIf:     func(err error) bool { return !errors.Is(err, permanent) },
	}, func(_ context.Context) Result[int] {
		attempts++
		return Err[int](permanent)
	})
	if r.IsOk() || attempts != 1 {
		t.Fatalf("permanent error should not be retried, attempts=%d", attempts)
	}
}

func TestRetryRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := Retry(ctx, RetryOpts{MaxAttempts: 3, InitialWait: time.Second}, func(_ context.Context) Result[int] {
		return Err[int](errors.New("x"))
	})
	_, err := r.Unwrap()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSliceHelpers(t *testing.T) {
	doubled := Map([]int{1, 2}, func(v int) int { return v * 2 })
	if doubled[0] != 2 || doubled[1] != 4 {
		t.Fatal("Map")
	}

	evens := Filter([]int{1, 2, 3, 4}, func(v int) bool { return v%2 == 0 })
	if len(evens) != 2 {
		t.Fatal("Filter")
	}

	chunks := Chunk([]int{1, 2, 3, 4, 5}, 2)
	if len(chunks) != 3 || len(chunks[2]) != 1 {
		t.Fatal("Chunk remainder")
	}

	uniq := Unique([]string{"a", "b", "a"})
	if len(uniq) != 2 {
		t.Fatal("Unique")
	}

	kept := FilterMap([]string{"a", "", "b"}, func(s string) (string, bool) { return s, s != "" })
	if len(kept) != 2 {
		t.Fatal("FilterMap")
	}
}
