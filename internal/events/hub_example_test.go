package events

import (
	"context"
	"fmt"
	"time"
)

type exampleCountingSink struct {
	total int
}

func (s *exampleCountingSink) Consume(_ context.Context, batch []Event) error {
	s.total += len(batch)
	return nil
}

func (s *exampleCountingSink) Close(context.Context) error {
	return nil
}

// ExampleHub_Emit demonstrates emitting an event and flushing via Close.
func ExampleHub_Emit() {
	sink := &exampleCountingSink{}
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 1,
		MaxBatchWait:   time.Second,
	}, sink)

	hub.Emit(Event{
		ID:       "00000000-0000-0000-0000-000000000001",
		TS:       time.Unix(0, 0),
		Stage:    StageFetchStart,
		Screener: "btst",
	})
	if err := hub.Close(context.Background()); err != nil {
		panic(err)
	}

	fmt.Printf("events forwarded: %d\n", sink.total)
	// Output:
	// events forwarded: 1
}

// ExampleSink implements a custom Sink that totals parsed rows.
func ExampleSink() {
	type rowsSink struct {
		rows int
	}
	var s rowsSink
	capture := sinkFunc(func(_ context.Context, batch []Event) error {
		for _, evt := range batch {
			s.rows += evt.Rows
		}
		return nil
	})
	hub := NewHub(Config{
		BufferSize:     2,
		MaxBatchEvents: 1,
		MaxBatchWait:   time.Second,
	}, capture)

	hub.Emit(Event{
		ID:       "00000000-0000-0000-0000-000000000002",
		TS:       time.Unix(0, 0),
		Stage:    StageFetchDone,
		Screener: "swing",
		Rows:     37,
		Dur:      4 * time.Second,
	})
	if err := hub.Close(context.Background()); err != nil {
		panic(err)
	}

	fmt.Printf("rows parsed: %d\n", s.rows)
	// Output:
	// rows parsed: 37
}

type sinkFunc func(context.Context, []Event) error

func (f sinkFunc) Consume(ctx context.Context, batch []Event) error {
	return f(ctx, batch)
}

func (sinkFunc) Close(context.Context) error {
	return nil
}
