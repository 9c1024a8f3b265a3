package modinput

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/modinput/pkg/definition"
	"github.com/bft-labs/modinput/pkg/event"
	"github.com/bft-labs/modinput/pkg/xmlcodec"
)

type streamFunc func(ctx context.Context, name string, params definition.Stanza, w EventWriter) error

// testInput implements only the required methods.
type testInput struct {
	scheme *definition.Scheme
	stream streamFunc
}

func (in *testInput) Scheme() *definition.Scheme { return in.scheme }

func (in *testInput) StreamEvents(ctx context.Context, name string, params definition.Stanza, w EventWriter) error {
	if in.stream == nil {
		return nil
	}
	return in.stream(ctx, name, params, w)
}

// hookedInput implements every optional hook and records the calls.
type hookedInput struct {
	testInput

	validate func(*definition.ValidationRequest) error
	startErr map[string]error
	endErr   map[string]error

	mu    sync.Mutex
	calls []string
	meta  definition.Metadata
}

func (in *hookedInput) record(call string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.calls = append(in.calls, call)
}

func (in *hookedInput) Calls() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]string(nil), in.calls...)
}

func (in *hookedInput) ValidateInput(ctx context.Context, req *definition.ValidationRequest) error {
	in.record("validate:" + req.Name)
	if in.validate == nil {
		return nil
	}
	return in.validate(req)
}

func (in *hookedInput) Start(ctx context.Context, name string, params definition.Stanza) error {
	in.record("start:" + name)
	return in.startErr[name]
}

func (in *hookedInput) End(ctx context.Context, name string, params definition.Stanza) error {
	in.record("end:" + name)
	return in.endErr[name]
}

func (in *hookedInput) Setup(ctx context.Context, meta definition.Metadata) error {
	in.record("setup")
	in.meta = meta
	return nil
}

func (in *hookedInput) Teardown(ctx context.Context) error {
	in.record("teardown")
	return nil
}

func inputDocument(t *testing.T, names ...string) io.Reader {
	t.Helper()
	b := &definition.InputBundle{
		Metadata: definition.Metadata{
			ServerHost:    "tiny",
			ServerURI:     "https://127.0.0.1:8089",
			CheckpointDir: t.TempDir(),
			SessionKey:    "123102983109283019283",
		},
		Inputs: map[string]definition.Stanza{},
	}
	for i, name := range names {
		b.Inputs[name] = definition.Stanza{"index": definition.Scalar(fmt.Sprint(i))}
	}
	text, err := xmlcodec.Marshal(definition.EncodeBundle(b))
	require.NoError(t, err)
	return bytes.NewReader(text)
}

func itemsDocument(t *testing.T, name string, params definition.Stanza) io.Reader {
	t.Helper()
	text, err := xmlcodec.Marshal(definition.EncodeValidationRequest(&definition.ValidationRequest{
		Name:       name,
		Parameters: params,
	}))
	require.NoError(t, err)
	return bytes.NewReader(text)
}

func parseStream(t *testing.T, out string) []*event.Event {
	t.Helper()
	root, err := xmlcodec.Unmarshal([]byte(out))
	require.NoError(t, err, "output is not a well-formed document: %s", out)
	require.Equal(t, "stream", root.Name)

	var events []*event.Event
	for _, n := range root.Children {
		e, err := event.Decode(n)
		require.NoError(t, err)
		events = append(events, e)
	}
	return events
}

func TestRun_Scheme(t *testing.T) {
	s := definition.NewScheme("Random Numbers")
	s.AddArgument(definition.NewArgument("min"))

	var out bytes.Buffer
	r := New(&testInput{scheme: s}, WithStreams(strings.NewReader(""), &out))
	require.NoError(t, r.Run(context.Background(), ModeScheme))

	want, err := xmlcodec.Marshal(definition.EncodeScheme(s))
	require.NoError(t, err)
	assert.Equal(t, string(want), out.String())
	assert.Equal(t, StateDone, r.State())
}

func TestRun_SchemeMissing(t *testing.T) {
	var out bytes.Buffer
	r := New(&testInput{}, WithStreams(strings.NewReader(""), &out))

	err := r.Run(context.Background(), ModeScheme)
	assert.ErrorIs(t, err, ErrNoScheme)
	assert.Empty(t, out.String())
	assert.Equal(t, StateFailed, r.State())
	assert.Equal(t, 1, ExitCode(err))
}

func TestRun_ValidateAccepted(t *testing.T) {
	in := &hookedInput{}
	var out bytes.Buffer
	r := New(in, WithStreams(itemsDocument(t, "myScheme", definition.Stanza{"min": definition.Scalar("1")}), &out))

	err := r.Run(context.Background(), ModeValidate)
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Equal(t, []string{"validate:myScheme"}, in.Calls())
	assert.Equal(t, 0, ExitCode(err))
}

func TestRun_ValidateWithoutValidator(t *testing.T) {
	var out bytes.Buffer
	r := New(&testInput{}, WithStreams(itemsDocument(t, "x", definition.Stanza{}), &out))

	require.NoError(t, r.Run(context.Background(), ModeValidate))
	assert.Empty(t, out.String())
}

func TestRun_ValidateRejected(t *testing.T) {
	in := &hookedInput{
		validate: func(req *definition.ValidationRequest) error {
			n, err := req.Parameters.Int("min")
			if err != nil {
				return err
			}
			if n < 0 {
				return errors.New("min must be >= 0 & an integer")
			}
			return nil
		},
	}
	var out bytes.Buffer
	r := New(in, WithStreams(itemsDocument(t, "x", definition.Stanza{"min": definition.Scalar("-1")}), &out))

	err := r.Run(context.Background(), ModeValidate)
	assert.ErrorIs(t, err, ErrValidationRejected)
	assert.Equal(t, 1, ExitCode(err))
	assert.Equal(t, `<error><message>min must be &gt;= 0 &amp; an integer</message></error>`, out.String())
	assert.Equal(t, StateFailed, r.State())
}

func TestRun_StreamConcurrentInstances(t *testing.T) {
	const perInstance = 50
	names := []string{"kind://a", "kind://b", "kind://c", "kind://d", "kind://e"}

	in := &testInput{
		stream: func(ctx context.Context, name string, params definition.Stanza, w EventWriter) error {
			for i := 0; i < perInstance; i++ {
				err := w.WriteEvent(ctx, &event.Event{
					Data: fmt.Sprintf("%s#%d", name, i),
					Time: time.UnixMilli(1372187084424),
				})
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	var out bytes.Buffer
	r := New(in, WithStreams(inputDocument(t, names...), &out))
	require.NoError(t, r.Run(context.Background(), ModeStream))

	s := out.String()
	assert.Equal(t, 1, strings.Count(s, "<stream>"))
	assert.Equal(t, 1, strings.Count(s, "</stream>"))
	assert.True(t, strings.HasSuffix(s, "</stream>"))

	events := parseStream(t, s)
	require.Len(t, events, perInstance*len(names))

	next := map[string]int{}
	for _, e := range events {
		assert.Equal(t, fmt.Sprintf("%s#%d", e.Stanza, next[e.Stanza]), e.Data)
		next[e.Stanza]++
		assert.Equal(t, "1372187084.424", event.FormatTime(e.Time))
	}
	for _, name := range names {
		assert.Equal(t, perInstance, next[name], name)
	}
}

func TestRun_StreamZeroInstances(t *testing.T) {
	var out bytes.Buffer
	r := New(&testInput{}, WithStreams(inputDocument(t), &out))

	require.NoError(t, r.Run(context.Background(), ModeStream))
	assert.Equal(t, "<stream></stream>", out.String())
}

func TestRun_StreamInstanceFailures(t *testing.T) {
	in := &hookedInput{
		testInput: testInput{
			stream: func(ctx context.Context, name string, params definition.Stanza, w EventWriter) error {
				if err := w.WriteEvent(ctx, &event.Event{Data: "hello"}); err != nil {
					return err
				}
				switch name {
				case "broken":
					return errors.New("upstream unavailable")
				case "panicky":
					panic("nil map")
				}
				return nil
			},
		},
		startErr: map[string]error{"nostart": errors.New("no credentials")},
	}

	var out bytes.Buffer
	r := New(in, WithStreams(inputDocument(t, "broken", "healthy", "nostart", "panicky"), &out))
	err := r.Run(context.Background(), ModeStream)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInstanceFailure)
	assert.Equal(t, StateFailed, r.State())

	failures := InstanceErrors(err)
	require.Len(t, failures, 3)
	byName := map[string]*InstanceError{}
	for _, f := range failures {
		byName[f.Name] = f
	}
	assert.Equal(t, PhaseStream, byName["broken"].Phase)
	assert.Equal(t, PhaseStart, byName["nostart"].Phase)
	assert.Equal(t, PhaseStream, byName["panicky"].Phase)

	var pe *PanicError
	require.True(t, errors.As(byName["panicky"], &pe))
	assert.Equal(t, "nil map", pe.Value)

	// Output stays a complete document.
	events := parseStream(t, out.String())
	assert.Len(t, events, 3)

	calls := in.Calls()
	assert.Contains(t, calls, "end:healthy")
	assert.NotContains(t, calls, "end:broken")
	assert.NotContains(t, calls, "end:panicky")
	assert.Equal(t, "setup", calls[0])
	assert.Equal(t, "teardown", calls[len(calls)-1])
}

func TestRun_StreamHooks(t *testing.T) {
	in := &hookedInput{}
	var out bytes.Buffer
	r := New(in, WithStreams(inputDocument(t, "only"), &out))

	require.NoError(t, r.Run(context.Background(), ModeStream))
	assert.Equal(t, []string{"setup", "start:only", "end:only", "teardown"}, in.Calls())
	assert.Equal(t, "tiny", in.meta.ServerHost)
}

func TestRun_StreamMaxConcurrency(t *testing.T) {
	var running, peak int32
	in := &testInput{
		stream: func(ctx context.Context, name string, params definition.Stanza, w EventWriter) error {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil
		},
	}

	var out bytes.Buffer
	r := New(in,
		WithStreams(inputDocument(t, "a", "b", "c", "d", "e", "f"), &out),
		WithMaxConcurrency(2),
	)
	require.NoError(t, r.Run(context.Background(), ModeStream))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.Equal(t, "<stream></stream>", out.String())
}

func TestRun_EventWriterFillsStanza(t *testing.T) {
	in := &testInput{
		stream: func(ctx context.Context, name string, params definition.Stanza, w EventWriter) error {
			if err := w.WriteEvent(ctx, &event.Event{Data: "implicit"}); err != nil {
				return err
			}
			return w.WriteEvent(ctx, &event.Event{Data: "explicit", Stanza: "other"})
		},
	}

	var out bytes.Buffer
	r := New(in, WithStreams(inputDocument(t, "kind://mine"), &out))
	require.NoError(t, r.Run(context.Background(), ModeStream))

	events := parseStream(t, out.String())
	require.Len(t, events, 2)
	assert.Equal(t, "kind://mine", events[0].Stanza)
	assert.Equal(t, "other", events[1].Stanza)
}

func TestRun_ReadTimeoutWritesNothing(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	var out bytes.Buffer
	r := New(&testInput{}, WithStreams(pr, &out), WithReadTimeout(50*time.Millisecond))

	started := time.Now()
	err := r.Run(context.Background(), ModeStream)
	assert.ErrorIs(t, err, ErrReadTimeout)
	assert.Less(t, time.Since(started), 5*time.Second)
	assert.Empty(t, out.String())
}

func TestRun_DecodeErrorWritesNothing(t *testing.T) {
	tests := []struct {
		name    string
		mode    Mode
		doc     string
		wantErr error
	}{
		{"missing metadata", ModeStream, `<input><configuration/></input>`, ErrDecode},
		{"malformed", ModeStream, `<input><server_host>x</input>`, ErrMalformedDocument},
		{"truncated", ModeStream, `<input><server_host>x</server_host>`, ErrMalformedDocument},
		{"two items", ModeValidate, `<items><server_host/><server_uri/><checkpoint_dir/><session_key/><item name="a"/><item name="b"/></items>`, ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &hookedInput{}
			var out bytes.Buffer
			r := New(in, WithStreams(strings.NewReader(tt.doc), &out))

			err := r.Run(context.Background(), tt.mode)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, out.String())
			assert.Empty(t, in.Calls())
		})
	}
}

type brokenSink struct{}

func (brokenSink) Write(p []byte) (int, error) { return 0, errors.New("broken pipe") }

func TestRun_WriteFailure(t *testing.T) {
	r := New(&testInput{}, WithStreams(inputDocument(t, "a"), brokenSink{}))
	err := r.Run(context.Background(), ModeStream)
	assert.ErrorIs(t, err, ErrWriteFailure)

	r = New(&testInput{scheme: definition.NewScheme("s")}, WithStreams(nil, brokenSink{}))
	err = r.Run(context.Background(), ModeScheme)
	assert.ErrorIs(t, err, ErrWriteFailure)
}

func TestRun_ContextCanceledStillClosesStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := &testInput{
		stream: func(ctx context.Context, name string, params definition.Stanza, w EventWriter) error {
			cancel()
			<-ctx.Done()
			return w.WriteEvent(ctx, &event.Event{Data: "late"})
		},
	}

	var out bytes.Buffer
	r := New(in, WithStreams(inputDocument(t, "a"), &out))
	err := r.Run(ctx, ModeStream)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "<stream></stream>", out.String())
}

type recordingRecorder struct {
	mu        sync.Mutex
	events    map[string]int
	instances map[string]error
	finished  bool
}

func (r *recordingRecorder) RunStarted(string) {}

func (r *recordingRecorder) RunFinished(string, time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = true
}

func (r *recordingRecorder) EventWritten(stanza string, size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[stanza]++
}

func (r *recordingRecorder) InstanceFinished(stanza string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[stanza] = err
}

func TestRun_Metrics(t *testing.T) {
	rec := &recordingRecorder{events: map[string]int{}, instances: map[string]error{}}
	in := &testInput{
		stream: func(ctx context.Context, name string, params definition.Stanza, w EventWriter) error {
			if err := w.WriteEvent(ctx, &event.Event{Data: "x"}); err != nil {
				return err
			}
			if name == "bad" {
				return errors.New("fail")
			}
			return nil
		},
	}

	var out bytes.Buffer
	r := New(in, WithStreams(inputDocument(t, "good", "bad"), &out), WithMetrics(rec))
	_ = r.Run(context.Background(), ModeStream)

	assert.Equal(t, map[string]int{"good": 1, "bad": 1}, rec.events)
	assert.NoError(t, rec.instances["good"])
	assert.Error(t, rec.instances["bad"])
	assert.True(t, rec.finished)
}
