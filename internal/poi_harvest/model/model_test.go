package model_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"poi-harvest/internal/poi_harvest/model"
)

func TestWorkItemKeyIsStable(t *testing.T) {
	a := model.NewAreaQuery("Paris", 48.8566, 2.3522, 5000, "museum")
	b := model.NewAreaQuery("Paris", 1, 1, 10, "museum")

	assert.Equal(t, "area|Paris|museum", a.Key())
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "museum", a.SubLabel())

	d := model.NewDetailLookup("Barcelona", "museum", "N123")
	assert.Equal(t, "detail|N123", d.Key())
	assert.Equal(t, "museum", d.Category)
	assert.Equal(t, "N123", d.SubLabel())
	assert.Equal(t, "detail", d.UsageCategory())
}

func TestPopularityOf(t *testing.T) {
	assert.InDelta(t, 450.0, model.PopularityOf(4.5, 100), 1e-9)
	assert.InDelta(t, 3.0, model.PopularityOf(3, 0), 1e-9)
}

func TestErrorClassification(t *testing.T) {
	term := fmt.Errorf("page 2: %w", &model.TerminalError{Status: "REQUEST_DENIED"})
	assert.True(t, model.IsTerminal(term))
	assert.False(t, model.IsRateLimited(term))

	fe := &model.FetchError{Cause: model.ErrRateLimited, Attempts: 5}
	assert.True(t, model.IsRateLimited(fe))
	assert.Contains(t, fe.Error(), "5 attempts")

	fatal := model.Fatal("write report", errors.New("disk full"))
	assert.True(t, model.IsFatal(fmt.Errorf("run: %w", fatal)))
	assert.NoError(t, model.Fatal("noop", nil))
}
