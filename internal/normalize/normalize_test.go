package normalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/krystal/internal/b64"
	"github.com/roach88/krystal/internal/krl"
	"github.com/roach88/krystal/internal/registry"
	"github.com/roach88/krystal/internal/verify"
)

func capsule(hash, doc string) string {
	return "https://x/s/" + hash + "?p=c:" + b64.Encode([]byte(doc))
}

func TestFixURL_RewritesMismatch(t *testing.T) {
	out, ok := FixURL(capsule("h1", `{"u":17491,"b":0,"s":0}`))
	require.True(t, ok)
	assert.Equal(t, "https://x/s/h1?p=c:eyJiIjozNSwicyI6NDMsInUiOjE3NDkxfQ", out)

	d, err := krl.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, int64(35), d.Beat.Int64())
	assert.Equal(t, int64(43), d.StepIndex.Int64())
}

func TestFixURL_AddsMissingFields(t *testing.T) {
	out, ok := FixURL(capsule("h1", `{"u":17491}`))
	require.True(t, ok)
	assert.Equal(t, "https://x/s/h1?p=c:eyJiIjozNSwicyI6NDMsInUiOjE3NDkxfQ", out)
}

func TestFixURL_KeepsExtraFieldsAndUTF8(t *testing.T) {
	out, ok := FixURL(capsule("h2", `{"x":"é","u":100000,"b":"25","s":35}`))
	require.True(t, ok)
	assert.Equal(t, "https://x/s/h2?p=c:eyJiIjoyNSwicyI6MzUsInUiOjEwMDAwMCwieCI6IsOpIn0", out)
}

func TestFixURL_PreservesOtherParamsAndFragment(t *testing.T) {
	raw := "https://x/s/h1?v=2&p=c:" + b64.Encode([]byte(`{"u":17491,"b":0,"s":0}`)) + "&q=a%20b#frag"
	out, ok := FixURL(raw)
	require.True(t, ok)
	assert.Equal(t, "https://x/s/h1?v=2&p=c:eyJiIjozNSwicyI6NDMsInUiOjE3NDkxfQ&q=a%20b#frag", out)
}

func TestFixURL_MalformedEscapesAreKept(t *testing.T) {
	out, ok := FixURL(capsule("abc%zz", `{"u":17491,"b":0,"s":0}`) + "&q=%zz")
	require.True(t, ok)
	assert.Equal(t, "https://x/s/abc%zz?p=c:eyJiIjozNSwicyI6NDMsInUiOjE3NDkxfQ&q=%zz", out)

	out, ok = FixURL(capsule("a|b", `{"u":17491}`))
	require.True(t, ok)
	assert.Equal(t, "https://x/s/a|b?p=c:eyJiIjozNSwicyI6NDMsInUiOjE3NDkxfQ", out)
}

func TestFixURL_PassThrough(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"already correct", capsule("h", `{"u":17491,"b":35,"s":43}`)},
		{"full payload", "https://x/s/h?p=" + b64.Encode([]byte(`{"pulse":17491,"beat":0,"stepIndex":0}`))},
		{"stream", "https://x/stream/p/" + b64.Encode([]byte(`{"pulse":17491,"beat":0,"stepIndex":0}`))},
		{"unknown", "https://x/other?p=c:abc"},
		{"no payload", "https://x/s/h"},
		{"blank payload", "https://x/s/h?p="},
		{"bad base64", "https://x/s/h?p=c:@@@"},
		{"not json", capsule("h", `{`)},
		{"not object", capsule("h", `[1]`)},
		{"missing u", capsule("h", `{"b":0,"s":0}`)},
		{"string u", capsule("h", `{"u":"17491","b":0,"s":0}`)},
		{"negative u", capsule("h", `{"u":-5,"b":0,"s":0}`)},
		{"bad escape and bad payload", "https://x/s/%zz?p=c:abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := FixURL(tt.url)
			assert.False(t, ok)
			assert.Equal(t, tt.url, out)
		})
	}
}

func TestNormalize_CountsAndDoesNotMutate(t *testing.T) {
	bad := capsule("h1", `{"u":17491,"b":0,"s":0}`)
	good := capsule("h2", `{"u":0,"b":0,"s":0}`)
	reg := registry.New(bad, "https://x/other", good)

	out, res := Normalize(reg)

	assert.Equal(t, Result{FixedCapsules: 1, Total: 3}, res)
	assert.Equal(t, []string{bad, "https://x/other", good}, reg.URLs())
	assert.Equal(t, "https://x/s/h1?p=c:eyJiIjozNSwicyI6NDMsInUiOjE3NDkxfQ", out.At(0))
	assert.Equal(t, "https://x/other", out.At(1))
	assert.Equal(t, good, out.At(2))
}

func TestNormalize_Idempotent(t *testing.T) {
	reg := registry.New(
		capsule("h1", `{"u":17491,"b":0,"s":0}`),
		capsule("h2", `{"u":100000}`),
	)

	once, first := Normalize(reg)
	assert.Equal(t, 2, first.FixedCapsules)

	twice, second := Normalize(once)
	assert.Equal(t, 0, second.FixedCapsules)
	assert.Equal(t, once.URLs(), twice.URLs())
}

func TestNormalize_ResultVerifies(t *testing.T) {
	reg := registry.New(
		capsule("h1", `{"u":17491,"b":0,"s":0}`),
		capsule("h2", `{"u":123456789,"b":1,"s":1}`),
	)

	before, err := verify.Verify(context.Background(), reg, verify.DefaultOptions())
	require.NoError(t, err)
	assert.False(t, before.OK)

	out, _ := Normalize(reg)
	after, err := verify.Verify(context.Background(), out, verify.DefaultOptions())
	require.NoError(t, err)
	assert.True(t, after.OK)
}
