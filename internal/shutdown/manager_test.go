package shutdown

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	name  string
	order *[]string
	err   error
}

func (r recorder) Close() error {
	*r.order = append(*r.order, r.name)
	return r.err
}

func TestShutdownClosesInReverseOrderOnce(t *testing.T) {
	var order []string
	m := NewManager(context.Background(), nil)
	m.Register(recorder{name: "first", order: &order})
	m.Register(recorder{name: "second", order: &order, err: errors.New("boom")})

	m.Shutdown()
	m.Shutdown()

	assert.Equal(t, []string{"second", "first"}, order)
	assert.ErrorIs(t, m.Context().Err(), context.Canceled)

	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestParentCancellationPropagates(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	m := NewManager(parent, nil)
	defer m.Shutdown()

	cancel()
	<-m.Context().Done()
}
