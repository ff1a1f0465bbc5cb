package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 23, 10, 0, 0, 0, time.UTC)

func TestMock_NowAndSince(t *testing.T) {
	c := NewMock(epoch)
	assert.Equal(t, epoch, c.Now())

	c.Advance(1500 * time.Millisecond)
	assert.Equal(t, epoch.Add(1500*time.Millisecond), c.Now())
	assert.Equal(t, 1500*time.Millisecond, c.Since(epoch))

	c.Set(epoch)
	assert.Equal(t, time.Duration(0), c.Since(epoch))
}

func TestMock_TickerFiresWhenDue(t *testing.T) {
	c := NewMock(epoch)
	tk := c.NewTicker(time.Second)

	c.Advance(500 * time.Millisecond)
	select {
	case <-tk.C():
		t.Fatal("ticker fired early")
	default:
	}

	c.Advance(500 * time.Millisecond)
	select {
	case got := <-tk.C():
		assert.Equal(t, epoch.Add(time.Second), got)
	default:
		t.Fatal("ticker did not fire")
	}
}

func TestMock_TickerDropsWhenUndrained(t *testing.T) {
	c := NewMock(epoch)
	tk := c.NewTicker(time.Second)

	c.Advance(time.Second)
	c.Advance(time.Second)

	got := <-tk.C()
	assert.Equal(t, epoch.Add(time.Second), got, "first tick kept")
	select {
	case <-tk.C():
		t.Fatal("second tick should have been dropped")
	default:
	}
}

func TestMock_StoppedTickerIsSilent(t *testing.T) {
	c := NewMock(epoch)
	tk := c.NewTicker(time.Second)
	require.Equal(t, 1, c.Tickers())

	tk.Stop()
	assert.Equal(t, 0, c.Tickers())

	c.Advance(5 * time.Second)
	select {
	case <-tk.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestReal_Ticker(t *testing.T) {
	var c Clock = Real{}
	tk := c.NewTicker(5 * time.Millisecond)
	defer tk.Stop()

	select {
	case <-tk.C():
	case <-time.After(time.Second):
		t.Fatal("real ticker never fired")
	}
	assert.True(t, c.Since(c.Now().Add(-time.Second)) >= time.Second)
}
