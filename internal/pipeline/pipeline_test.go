package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfconvert/internal/testpdf"
	"pdfconvert/internal/types"
	"pdfconvert/internal/validator"
	"pdfconvert/internal/workspace"
)

// fakeConverter writes a fixed payload, or fails in the configured way
type fakeConverter struct {
	mode        types.Mode
	err         error
	panic       bool
	partial     bool // write output before failing
	sawCanceled bool

	mu   sync.Mutex
	outs []string
}

func (f *fakeConverter) Mode() types.Mode {
	if f.mode == "" {
		return types.ModeDocx
	}

	return f.mode
}

func (f *fakeConverter) Extension() string   { return "." + string(f.Mode()) }
func (f *fakeConverter) ContentType() string { return "application/test-" + string(f.Mode()) }

func (f *fakeConverter) Convert(ctx context.Context, _, outputPath string) error {
	f.mu.Lock()
	f.outs = append(f.outs, outputPath)
	f.sawCanceled = f.sawCanceled || ctx.Err() != nil
	f.mu.Unlock()

	if f.partial {
		_ = os.WriteFile(outputPath, []byte("half"), 0o600)
	}

	if f.panic {
		panic("out of memory")
	}

	if f.err != nil {
		return f.err
	}

	return os.WriteFile(outputPath, []byte("PK\x03\x04converted"), 0o600)
}

func newTestOrchestrator(t *testing.T, conv *fakeConverter) (*Orchestrator, *workspace.Manager) {
	t.Helper()

	root := t.TempDir()

	ws, err := workspace.New(filepath.Join(root, "uploads"), filepath.Join(root, "converted"))
	require.NoError(t, err)

	return New(validator.New(1024*1024), ws, conv), ws
}

func validRequest() types.UploadRequest {
	data := testpdf.Minimal()

	return types.UploadRequest{
		FileName:     "Report.pdf",
		DeclaredSize: int64(len(data)),
		Data:         data,
		Mode:         types.ModeDocx,
	}
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}

func TestRunDelivers(t *testing.T) {
	conv := &fakeConverter{}
	o, ws := newTestOrchestrator(t, conv)

	result := o.Run(context.Background(), validRequest())

	require.True(t, result.Delivered(), "%v", result.Err)
	assert.Equal(t, StateDelivered, result.State)
	assert.Equal(t, "Report.docx", result.DisplayName)
	assert.Equal(t, types.ReasonNone, result.Reason)

	d, err := ws.Resolve(result.Token)
	require.NoError(t, err)
	assert.Equal(t, conv.outs[0], d.Path, "output written to the allocated path")

	assert.Empty(t, dirEntries(t, ws.UploadDir()), "input removed after conversion")
	assert.Equal(t, []string{result.Token}, dirEntries(t, ws.ConvertedDir()))
}

func TestRunRejectsBeforePersisting(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(req *types.UploadRequest)
		expected types.Reason
	}{
		{
			name:     "wrong extension",
			mutate:   func(req *types.UploadRequest) { req.FileName = "Report.doc" },
			expected: types.ReasonWrongExtension,
		},
		{
			name:     "empty",
			mutate:   func(req *types.UploadRequest) { req.Data, req.DeclaredSize = nil, 0 },
			expected: types.ReasonEmpty,
		},
		{
			name:     "too large",
			mutate:   func(req *types.UploadRequest) { req.DeclaredSize = 10 * 1024 * 1024 },
			expected: types.ReasonTooLarge,
		},
		{
			name:     "corrupt",
			mutate:   func(req *types.UploadRequest) { req.Data = testpdf.Truncated() },
			expected: types.ReasonCorruptPDF,
		},
		{
			name:     "unknown mode",
			mutate:   func(req *types.UploadRequest) { req.Mode = "pptx" },
			expected: types.ReasonBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := &fakeConverter{}
			o, ws := newTestOrchestrator(t, conv)

			req := validRequest()
			tt.mutate(&req)

			result := o.Run(context.Background(), req)

			assert.Equal(t, StateRejected, result.State)
			assert.Equal(t, StateReceived, result.RejectedAt)
			assert.Equal(t, tt.expected, result.Reason)
			assert.Empty(t, result.Token)
			assert.Empty(t, conv.outs, "converter must not run")
			assert.Empty(t, dirEntries(t, ws.UploadDir()))
			assert.Empty(t, dirEntries(t, ws.ConvertedDir()))
		})
	}
}

func TestRunConversionFailureLeavesNothing(t *testing.T) {
	tests := []struct {
		name string
		conv *fakeConverter
	}{
		{name: "engine error", conv: &fakeConverter{err: errors.New("unsupported PDF feature")}},
		{name: "engine panic", conv: &fakeConverter{panic: true}},
		{name: "partial output then error", conv: &fakeConverter{partial: true, err: errors.New("boom")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, ws := newTestOrchestrator(t, tt.conv)

			result := o.Run(context.Background(), validRequest())

			assert.Equal(t, StateRejected, result.State)
			assert.Equal(t, StatePersisted, result.RejectedAt)
			assert.Equal(t, types.ReasonConversion, result.Reason)
			assert.Empty(t, result.Token)
			assert.Empty(t, dirEntries(t, ws.UploadDir()))
			assert.Empty(t, dirEntries(t, ws.ConvertedDir()))

			require.Len(t, tt.conv.outs, 1)

			_, err := ws.Resolve(filepath.Base(tt.conv.outs[0]))
			assert.ErrorIs(t, err, workspace.ErrNotFound)
		})
	}
}

func TestRunStorageFailure(t *testing.T) {
	conv := &fakeConverter{}
	o, ws := newTestOrchestrator(t, conv)

	require.NoError(t, os.RemoveAll(ws.UploadDir()))

	result := o.Run(context.Background(), validRequest())

	assert.Equal(t, StateRejected, result.State)
	assert.Equal(t, StateValidated, result.RejectedAt)
	assert.Equal(t, types.ReasonStorage, result.Reason)
	assert.Empty(t, conv.outs)
}

func TestRunIgnoresCancellation(t *testing.T) {
	conv := &fakeConverter{}
	o, _ := newTestOrchestrator(t, conv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := o.Run(ctx, validRequest())

	assert.True(t, result.Delivered())
	assert.False(t, conv.sawCanceled)
}

func TestRunConcurrentSameName(t *testing.T) {
	conv := &fakeConverter{}
	o, ws := newTestOrchestrator(t, conv)

	const n = 16

	results := make([]Result, n)

	var wg sync.WaitGroup

	for i := range n {
		wg.Add(1)

		go func() {
			defer wg.Done()
			results[i] = o.Run(context.Background(), validRequest())
		}()
	}

	wg.Wait()

	seen := make(map[string]bool, n)

	for _, r := range results {
		require.True(t, r.Delivered(), "%v", r.Err)
		assert.False(t, seen[r.Token], "duplicate token %s", r.Token)
		seen[r.Token] = true

		_, err := ws.Resolve(r.Token)
		assert.NoError(t, err)
	}
}

func TestContentType(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeConverter{})

	assert.Equal(t, "application/test-docx", o.ContentType("abc.docx"))
	assert.Equal(t, "application/octet-stream", o.ContentType("abc.bin"))
}
