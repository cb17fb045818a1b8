package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kjstillabower/weatherlog/internal/models"
)

func sampleReport(city string, temp float64) models.Report {
	return models.Report{
		Current:  models.WeatherData{City: city, Temperature: temp},
		Forecast: []models.ForecastPoint{{Temperature: temp + 1}},
	}
}

func TestInMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	val := sampleReport("Seattle", 12.5)
	if err := c.Set(ctx, "seattle", val, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := c.Get(ctx, "seattle")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got.Current.City != "Seattle" || len(got.Forecast) != 1 {
		t.Errorf("Get() = %+v, want %+v", got, val)
	}
}

func TestInMemoryCache_Get_Miss(t *testing.T) {
	_, ok, err := NewInMemoryCache().Get(context.Background(), "nowhere")
	if err != nil || ok {
		t.Errorf("Get() = ok %v err %v, want miss", ok, err)
	}
}

func TestInMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	c := NewInMemoryCacheWithClock(clock)

	_ = c.Set(ctx, "paris", sampleReport("Paris", 20), time.Minute)

	clock.Advance(59 * time.Second)
	if _, ok, _ := c.Get(ctx, "paris"); !ok {
		t.Fatal("Get() before ttl ok = false, want true")
	}

	clock.Advance(time.Second)
	if _, ok, _ := c.Get(ctx, "paris"); ok {
		t.Fatal("Get() at ttl ok = true, want expired")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want expired entry removed", c.Len())
	}
}

func TestInMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.Set(ctx, "tokyo", sampleReport("Tokyo", 18), time.Minute)
		}()
		go func() {
			defer wg.Done()
			_, _, _ = c.Get(ctx, "tokyo")
		}()
	}
	wg.Wait()

	if _, ok, _ := c.Get(ctx, "tokyo"); !ok {
		t.Error("Get() after concurrent sets ok = false, want true")
	}
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	ctx := context.Background()
	if err := c.Set(ctx, "rome", sampleReport("Rome", 25), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, ok, _ := c.Get(ctx, "rome"); ok {
		t.Error("Nop.Get() ok = true, want always miss")
	}
}

func TestKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"London", "london"},
		{"  New York ", "new york"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Key(tt.in); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
