package documents

import (
	"context"
	"errors"
	"image"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textbook-chat/cli/internal/llm"
	"github.com/textbook-chat/cli/internal/logx"
	"github.com/textbook-chat/cli/internal/remote"
)

type fakePage struct {
	text    string
	textErr error
	imgErr  error
}

type fakeDoc struct {
	pages  []fakePage
	closed bool
}

func (d *fakeDoc) NumPage() int { return len(d.pages) }

func (d *fakeDoc) Text(i int) (string, error) {
	return d.pages[i].text, d.pages[i].textErr
}

func (d *fakeDoc) Image(i int, dpi float64) (image.Image, error) {
	if d.pages[i].imgErr != nil {
		return nil, d.pages[i].imgErr
	}
	return image.NewRGBA(image.Rect(0, 0, 20, 30)), nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

type fakeOpener struct {
	doc *fakeDoc
	err error
}

func (o fakeOpener) Open([]byte) (Document, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

type fakeReader struct {
	calls   int
	prompts []string
	opts    []llm.Options
	reply   func(call int) (string, error)
}

func (r *fakeReader) ReadImage(_ context.Context, png []byte, prompt string, options ...llm.Option) (string, error) {
	r.calls++
	r.prompts = append(r.prompts, prompt)
	r.opts = append(r.opts, llm.Apply(llm.Options{}, options...))
	return r.reply(r.calls)
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Policy = remote.Policy{MaxAttempts: 3}
	return opts
}

func TestExtract_EmbeddedText(t *testing.T) {
	doc := &fakeDoc{pages: []fakePage{{text: "Hello world."}}}
	reader := &fakeReader{}
	e := NewExtractor(fakeOpener{doc: doc}, reader, testOptions())

	ext, err := e.Extract(context.Background(), []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, "Hello world.\n", ext.Text)
	assert.False(t, ext.UsedOCR)
	assert.Zero(t, reader.calls)
	assert.True(t, doc.closed)
}

func TestExtract_SkipsEmptyAndFailedPages(t *testing.T) {
	doc := &fakeDoc{pages: []fakePage{
		{text: "one"},
		{text: ""},
		{textErr: errors.New("corrupt stream")},
		{text: "four"},
	}}
	e := NewExtractor(fakeOpener{doc: doc}, &fakeReader{}, testOptions())

	ext, err := e.Extract(context.Background(), []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, "one\nfour\n", ext.Text)
	require.Len(t, ext.Failures, 1)
	assert.Equal(t, 3, ext.Failures[0].Page)
	assert.Equal(t, "text", ext.Failures[0].Stage)
}

func TestExtract_OCRFallbackCallsEveryPage(t *testing.T) {
	logx.Discard()
	doc := &fakeDoc{pages: []fakePage{{text: "  \n"}, {text: ""}, {text: "\t"}}}
	reader := &fakeReader{reply: func(call int) (string, error) {
		return []string{"", "alpha", "beta", "gamma"}[call], nil
	}}
	opts := testOptions()
	opts.VisionModel = "gpt-4o"
	var progress []int
	opts.Progress = func(page, total int) {
		assert.Equal(t, 3, total)
		progress = append(progress, page)
	}
	e := NewExtractor(fakeOpener{doc: doc}, reader, opts)

	ext, err := e.Extract(context.Background(), []byte("%PDF"))
	require.NoError(t, err)

	assert.True(t, ext.UsedOCR)
	assert.Equal(t, 3, reader.calls)
	assert.Equal(t, "alpha\n\nbeta\n\ngamma\n\n", ext.Text)
	assert.Equal(t, []int{1, 2, 3}, progress)
	assert.Equal(t, "Extract all readable text from this image.", reader.prompts[0])
	assert.Equal(t, 1000, reader.opts[0].MaxTokens)
	assert.Equal(t, "gpt-4o", reader.opts[0].Model)
}

func TestExtract_OCRFailuresSkipPage(t *testing.T) {
	logx.Discard()
	doc := &fakeDoc{pages: []fakePage{{}, {imgErr: errors.New("bad xref")}, {}}}
	reader := &fakeReader{reply: func(call int) (string, error) {
		if call == 1 {
			return "", &remote.StatusError{Service: "openai", Code: http.StatusUnauthorized}
		}
		return "last page", nil
	}}
	e := NewExtractor(fakeOpener{doc: doc}, reader, testOptions())

	ext, err := e.Extract(context.Background(), []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, "last page\n\n", ext.Text)
	assert.Equal(t, 2, reader.calls, "rasterize failure never reaches the reader")
	require.Len(t, ext.Failures, 2)
	assert.Equal(t, "ocr", ext.Failures[0].Stage)
	assert.Equal(t, 1, ext.Failures[0].Page)
	assert.Equal(t, "rasterize", ext.Failures[1].Stage)
	assert.Equal(t, 2, ext.Failures[1].Page)
}

func TestExtract_OCRRetriesWarmup(t *testing.T) {
	logx.Discard()
	doc := &fakeDoc{pages: []fakePage{{}}}
	reader := &fakeReader{reply: func(call int) (string, error) {
		if call < 3 {
			return "", &remote.StatusError{Service: "openai", Code: http.StatusServiceUnavailable}
		}
		return "finally", nil
	}}
	e := NewExtractor(fakeOpener{doc: doc}, reader, testOptions())

	ext, err := e.Extract(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "finally\n\n", ext.Text)
	assert.Equal(t, 3, reader.calls)
}

func TestExtract_Errors(t *testing.T) {
	e := NewExtractor(fakeOpener{err: errors.New("not a pdf")}, &fakeReader{}, testOptions())

	_, err := e.Extract(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = e.Extract(context.Background(), []byte("junk"))
	assert.ErrorContains(t, err, "not a pdf")
}

func TestExtract_CancelledDuringOCR(t *testing.T) {
	doc := &fakeDoc{pages: []fakePage{{}, {}}}
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{reply: func(call int) (string, error) {
		cancel()
		return "first", nil
	}}
	e := NewExtractor(fakeOpener{doc: doc}, reader, testOptions())

	_, err := e.Extract(ctx, []byte("%PDF"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, reader.calls)
}
