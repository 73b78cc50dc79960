package timeouts

import (
	"context"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	Reset()
	if Short() != DefaultShort || Long() != DefaultLong || Batch() != DefaultBatch {
		t.Fatalf("unexpected defaults: %+v", Current())
	}
}

func TestConfigure_IgnoresZero(t *testing.T) {
	Reset()
	defer Reset()

	Configure(Config{Short: 7 * time.Second})
	if Short() != 7*time.Second {
		t.Errorf("Short() = %v, want 7s", Short())
	}
	if Medium() != DefaultMedium {
		t.Errorf("Medium() = %v, want default", Medium())
	}
}

func TestConfigureFromEnv(t *testing.T) {
	Reset()
	defer Reset()

	t.Setenv("STUDYHUB_TIMEOUT_PING", "750ms")
	t.Setenv("STUDYHUB_TIMEOUT_LONG", "not-a-duration")
	t.Setenv("STUDYHUB_TIMEOUT_BATCH", "-5s")

	if n := ConfigureFromEnv(); n != 1 {
		t.Errorf("ConfigureFromEnv() = %d, want 1", n)
	}
	if Ping() != 750*time.Millisecond {
		t.Errorf("Ping() = %v, want 750ms", Ping())
	}
	if Long() != DefaultLong {
		t.Errorf("Long() = %v, want default", Long())
	}
}

func TestWithTimeout_Expires(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, nil, "test")
	defer cancel()
	<-ctx.Done()
	if ctx.Err() != context.DeadlineExceeded {
		t.Errorf("ctx.Err() = %v, want DeadlineExceeded", ctx.Err())
	}
}
