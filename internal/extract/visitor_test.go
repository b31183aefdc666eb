package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/depcrawl/depcrawl/internal/pipeline"
)

type fakePages struct {
	text string
	err  error
	got  string
}

func (p *fakePages) ReadPage(_ context.Context, url string) (string, error) {
	p.got = url
	return p.text, p.err
}

type fakeTextExtractor struct {
	rec     pipeline.ChangeRecord
	err     error
	gotText string
	gotGoal string
}

func (e *fakeTextExtractor) Extract(_ context.Context, pageText, goal string) (pipeline.ChangeRecord, error) {
	e.gotText = pageText
	e.gotGoal = goal
	return e.rec, e.err
}

func TestVisitorExtract(t *testing.T) {
	t.Parallel()

	pages := &fakePages{text: "TARGET API: Foo\n..."}
	client := &fakeTextExtractor{rec: pipeline.ChangeRecord{API: "Foo", Source: "https://docs.example.com"}}
	v := NewVisitor(pages, client, "find api changes")

	rec, err := v.Extract(context.Background(), "https://docs.example.com/api#Foo")
	require.NoError(t, err)
	require.Equal(t, "Foo", rec.API)
	require.Equal(t, "https://docs.example.com", rec.Source)
	require.Equal(t, "https://docs.example.com/api#Foo", pages.got)
	require.Equal(t, "TARGET API: Foo\n...", client.gotText)
	require.Equal(t, "find api changes", client.gotGoal)
}

func TestVisitorFillsEmptySourceWithURL(t *testing.T) {
	t.Parallel()

	pages := &fakePages{text: "content"}
	client := &fakeTextExtractor{rec: pipeline.ChangeRecord{API: "Foo"}}
	v := NewVisitor(pages, client, "goal")

	rec, err := v.Extract(context.Background(), "https://docs.example.com/api")
	require.NoError(t, err)
	require.Equal(t, "https://docs.example.com/api", rec.Source)
}

func TestVisitorFetchErrorPropagates(t *testing.T) {
	t.Parallel()

	v := NewVisitor(&fakePages{err: errors.New("connection refused")}, &fakeTextExtractor{}, "goal")
	_, err := v.Extract(context.Background(), "https://docs.example.com")
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection refused")
}

func TestVisitorModelErrorPropagates(t *testing.T) {
	t.Parallel()

	v := NewVisitor(&fakePages{text: "content"}, &fakeTextExtractor{err: errors.New("rate limited")}, "goal")
	_, err := v.Extract(context.Background(), "https://docs.example.com")
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limited")
}
