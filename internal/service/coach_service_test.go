package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caku/internal/models"
)

type stubCompleter struct {
	prompt string
	reply  string
	err    error
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func TestAdviceBuildsPrompt(t *testing.T) {
	llm := &stubCompleter{reply: "Kurangi jajan."}
	svc := NewCoachService(llm, zerolog.Nop())

	format := func(v int64) string { return fmt.Sprintf("Rp%d", v) }
	advice, err := svc.Advice(context.Background(), "05-2024", []models.CategoryTotal{
		{Category: strPtr("makan"), Total: -50_000},
		{Total: -10_000},
	}, format)
	require.NoError(t, err)
	assert.Equal(t, "Kurangi jajan.", advice)
	assert.Contains(t, llm.prompt, "05-2024")
	assert.Contains(t, llm.prompt, "makan: Rp50000")
	assert.Contains(t, llm.prompt, "Tanpa Kategori: Rp10000")
}

func TestAdviceWithoutData(t *testing.T) {
	llm := &stubCompleter{}
	svc := NewCoachService(llm, zerolog.Nop())
	_, err := svc.Advice(context.Background(), "05-2024", nil, func(int64) string { return "" })
	assert.Error(t, err)
	assert.Empty(t, llm.prompt)
}

func TestMotivationFallsBack(t *testing.T) {
	svc := NewCoachService(&stubCompleter{err: errors.New("rate limited")}, zerolog.Nop())
	assert.Equal(t, fallbackMotivation, svc.Motivation(context.Background(), "lucu"))

	llm := &stubCompleter{reply: "Gas terus!"}
	svc = NewCoachService(llm, zerolog.Nop())
	assert.Equal(t, "Gas terus!", svc.Motivation(context.Background(), "dark"))
	assert.Contains(t, llm.prompt, "dark humor")
}
