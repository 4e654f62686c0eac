package intercept

import (
	"testing"

	"github.com/lanikai/virtucam/internal/gles"
	"github.com/lanikai/virtucam/internal/session"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replacer struct {
	calls   [][]session.Target
	live    int
	err     error
	short   bool
	explode bool
}

func (r *replacer) Replace(targets []session.Target) ([]gles.NativeWindow, error) {
	r.calls = append(r.calls, targets)
	r.live = 0
	if r.explode {
		panic("hook blew up")
	}
	if r.err != nil {
		return nil, r.err
	}
	var subs []gles.NativeWindow
	for _, t := range targets {
		subs = append(subs, t.Window+0x1000)
	}
	if r.short {
		subs = subs[1:]
	}
	r.live = len(targets)
	return subs, nil
}

func outputs(ws ...gles.NativeWindow) []Output {
	var out []Output
	for _, w := range ws {
		out = append(out, Output{Target: session.Target{Window: w}})
	}
	return out
}

func TestSelect(t *testing.T) {
	cases := map[int]Variant{
		21: SurfaceList,
		23: SurfaceList,
		24: OutputConfigurations,
		27: OutputConfigurations,
		28: SessionConfiguration,
		34: SessionConfiguration,
	}
	for level, want := range cases {
		assert.Equal(t, want, Select(level), "API %d", level)
	}
}

func TestIntercept(t *testing.T) {
	r := &replacer{}
	h := NewHook(30, r)

	res := h.Intercept(Request{Variant: SessionConfiguration, Outputs: outputs(1, 2)})
	assert.True(t, res.Modified)
	assert.Equal(t, []gles.NativeWindow{0x1001, 0x1002}, res.Substitutes)
	assert.Len(t, r.calls, 1)
}

func TestInterceptOtherVariantIgnored(t *testing.T) {
	r := &replacer{}
	h := NewHook(30, r)

	for _, v := range []Variant{SurfaceList, OutputConfigurations} {
		res := h.Intercept(Request{Variant: v, Outputs: outputs(1)})
		assert.False(t, res.Modified, v.String())
	}
	assert.Empty(t, r.calls)
}

func TestInterceptDeferredPassThrough(t *testing.T) {
	r := &replacer{}
	h := NewHook(26, r)

	req := Request{Variant: OutputConfigurations, Outputs: outputs(5)}
	req.Outputs = append([]Output{{Deferred: true}}, req.Outputs...)

	res := h.Intercept(req)
	assert.True(t, res.Modified)
	assert.Equal(t, []gles.NativeWindow{0, 0x1005}, res.Substitutes)
	assert.Equal(t, []session.Target{{Window: 5}}, r.calls[0])

	res = h.Intercept(Request{Variant: OutputConfigurations, Outputs: []Output{{Deferred: true}}})
	assert.False(t, res.Modified)
}

func TestInterceptAllDeferredEndsPreviousSessions(t *testing.T) {
	r := &replacer{}
	h := NewHook(30, r)

	res := h.Intercept(Request{Variant: SessionConfiguration, Outputs: outputs(7)})
	require.True(t, res.Modified)
	assert.Equal(t, 1, r.live)

	res = h.Intercept(Request{Variant: SessionConfiguration, Outputs: []Output{{Deferred: true}, {Deferred: true}}})
	assert.False(t, res.Modified)
	require.Len(t, r.calls, 2)
	assert.Empty(t, r.calls[1])
	assert.Equal(t, 0, r.live)

	// Other variants never reach the manager.
	h.Intercept(Request{Variant: SurfaceList, Outputs: []Output{{Deferred: true}}})
	assert.Len(t, r.calls, 2)

	r.err = session.ErrDisabled
	assert.NotPanics(t, func() {
		h.Intercept(Request{Variant: SessionConfiguration, Outputs: []Output{{Deferred: true}}})
	})
	assert.Len(t, r.calls, 3)
}

func TestInterceptFallsBack(t *testing.T) {
	cases := map[string]*replacer{
		"disabled": {err: errors.Wrap(session.ErrDisabled, "config")},
		"failure":  {err: errors.New("no substitute")},
		"short":    {short: true},
		"panic":    {explode: true},
	}
	for name, r := range cases {
		h := NewHook(21, r)
		var res Result
		assert.NotPanics(t, func() {
			res = h.Intercept(Request{Variant: SurfaceList, Outputs: outputs(1, 2)})
		}, name)
		assert.False(t, res.Modified, name)
		assert.Nil(t, res.Substitutes, name)
	}
}
