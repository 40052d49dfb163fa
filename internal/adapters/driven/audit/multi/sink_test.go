package multi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/concierge/internal/adapters/driven/audit/memory"
	"github.com/custodia-labs/concierge/internal/core/domain"
)

func TestSink_FansOut(t *testing.T) {
	a, b := memory.New(), memory.New()
	m := New(a, nil, b)
	assert.Len(t, m, 2)

	m.Emit(context.Background(), domain.AuditEvent{QueryID: "q1", Stage: domain.StageAnswer})

	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
	assert.Equal(t, "q1", b.Events()[0].QueryID)
}

func TestSink_Empty(t *testing.T) {
	assert.NotPanics(t, func() {
		New().Emit(context.Background(), domain.AuditEvent{})
	})
}
