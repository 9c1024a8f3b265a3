package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/bft-labs/modinput/pkg/checkpoint"
	"github.com/bft-labs/modinput/pkg/definition"
	"github.com/bft-labs/modinput/pkg/event"
	"github.com/bft-labs/modinput/pkg/log"
	"github.com/bft-labs/modinput/pkg/modinput"
)

const defaultCount = 5

// randomInput writes count random integers in [min, max] per instance
// and remembers how many it has written across runs.
type randomInput struct {
	// intn returns a value in [0, n). Tests replace it.
	intn func(n int64) int64
	now  func() time.Time

	mu    sync.Mutex
	store checkpoint.Store
}

func newRandomInput() *randomInput {
	return &randomInput{intn: rand.Int64N, now: time.Now}
}

func (r *randomInput) Scheme() *definition.Scheme {
	s := definition.NewScheme("Random Numbers")
	s.Description = "Streams random numbers between min and max."
	s.UseExternalValidation = true

	lo := definition.NewArgument("min")
	lo.Description = "Minimum value"
	lo.DataType = definition.DataTypeNumber
	lo.RequiredOnEdit = true
	s.AddArgument(lo)

	hi := definition.NewArgument("max")
	hi.Description = "Maximum value"
	hi.DataType = definition.DataTypeNumber
	hi.RequiredOnEdit = true
	s.AddArgument(hi)

	n := definition.NewArgument("count")
	n.Description = "Numbers written per run"
	n.DataType = definition.DataTypeNumber
	n.RequiredOnCreate = false
	s.AddArgument(n)
	return s
}

func (r *randomInput) ValidateInput(ctx context.Context, req *definition.ValidationRequest) error {
	_, _, _, err := parseRange(req.Parameters)
	return err
}

func (r *randomInput) Setup(ctx context.Context, meta definition.Metadata) error {
	store, err := checkpoint.NewFileStore(meta.CheckpointDir)
	if errors.Is(err, checkpoint.ErrNoDirectory) {
		log.FromContext(ctx).Warn("no checkpoint directory, counts will not persist")
		return nil
	}
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.store = store
	r.mu.Unlock()
	return nil
}

func (r *randomInput) StreamEvents(ctx context.Context, name string, params definition.Stanza, w modinput.EventWriter) error {
	lo, hi, count, err := parseRange(params)
	if err != nil {
		return err
	}

	r.mu.Lock()
	store := r.store
	r.mu.Unlock()

	cp := checkpoint.Checkpoint{Stanza: name}
	if store != nil {
		if cp, err = store.Load(ctx, name); err != nil {
			return err
		}
	}

	var written int64
	var last int64
	for i := int64(0); i < count; i++ {
		last = lo + r.intn(hi-lo+1)
		e := &event.Event{
			Data:       fmt.Sprintf("number=%d seq=%d", last, cp.Count+written+1),
			Time:       r.now(),
			Source:     "random",
			SourceType: "random_numbers",
		}
		if err := w.WriteEvent(ctx, e); err != nil {
			return err
		}
		written++
	}

	log.FromContext(ctx).Debug("numbers written", log.Int64("count", written))
	if store == nil || written == 0 {
		return nil
	}
	cp.Advance(strconv.FormatInt(last, 10), written)
	return store.Save(ctx, cp)
}

func parseRange(params definition.Stanza) (lo, hi, count int64, err error) {
	if lo, err = params.Int("min"); err != nil {
		return 0, 0, 0, err
	}
	if hi, err = params.Int("max"); err != nil {
		return 0, 0, 0, err
	}
	if lo > hi {
		return 0, 0, 0, fmt.Errorf("min (%d) must not be greater than max (%d)", lo, hi)
	}

	count = defaultCount
	if params.Has("count") {
		if count, err = params.Int("count"); err != nil {
			return 0, 0, 0, err
		}
		if count < 0 {
			return 0, 0, 0, fmt.Errorf("count must not be negative, got %d", count)
		}
	}
	return lo, hi, count, nil
}
