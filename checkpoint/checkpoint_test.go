package checkpoint

import (
	"bytes"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/gorgonia/digits/nn"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomParams(conf nn.Config, seed int64) *nn.Params {
	p := nn.New(conf)
	p.Init(rand.New(rand.NewSource(seed)))
	return p
}

func assertSameParams(t *testing.T, want, got *nn.Params) {
	t.Helper()
	opt := cmpopts.EquateApprox(0, 1e-7)
	if diff := cmp.Diff(want.W(), got.W(), opt); diff != "" {
		t.Errorf("W differs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.V(), got.V(), opt); diff != "" {
		t.Errorf("V differs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.BiasH, got.BiasH, opt); diff != "" {
		t.Errorf("BiasH differs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.BiasO, got.BiasO, opt); diff != "" {
		t.Errorf("BiasO differs (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	stores := []struct {
		name  string
		store Store
	}{
		{"memory", new(Memory)},
		{"file", File(filepath.Join(dir, "weights.txt"))},
		{"pair", Pair{W: filepath.Join(dir, "W.txt"), V: filepath.Join(dir, "V.txt")}},
	}
	confs := []nn.Config{nn.DefaultConf(10, 10), {Inputs: 3, Hidden: 2, Outputs: 2, InitRange: 5}}
	for _, s := range stores {
		for i, conf := range confs {
			want := randomParams(conf, int64(i))
			require.NoError(t, s.store.Save(want), s.name)

			got := nn.New(conf)
			require.NoError(t, s.store.Load(got), s.name)
			assertSameParams(t, want, got)
		}
	}
}

func TestEncodeLayout(t *testing.T) {
	p := nn.New(nn.Config{Inputs: 2, Hidden: 2, Outputs: 2, Bias: true})
	p.W()[0][0], p.W()[0][1], p.W()[1][0], p.W()[1][1] = 1, 2, 3, 4
	p.V()[0][0], p.V()[0][1], p.V()[1][0], p.V()[1][1] = 5, 6, 7, 8
	p.BiasH[0], p.BiasH[1] = 0.5, -0.25
	p.BiasO[0], p.BiasO[1] = 0.1, -3e-5

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, p))
	assert.Equal(t, "1\n2\n3\n4\n5\n6\n7\n8\n0.5\n-0.25\n0.1\n-3e-05\n", buf.String())

	p.Bias = false
	buf.Reset()
	require.NoError(t, Encode(&buf, p))
	assert.Equal(t, 8, strings.Count(buf.String(), "\n"))
}

func TestPairLayout(t *testing.T) {
	dir := t.TempDir()
	s := Pair{W: filepath.Join(dir, "W.txt"), V: filepath.Join(dir, "V.txt")}
	p := nn.New(nn.Config{Inputs: 1, Hidden: 2, Outputs: 2, Bias: true})
	p.W()[0][0], p.W()[0][1] = 1, 2
	p.V()[0][0], p.V()[0][1], p.V()[1][0], p.V()[1][1] = 3, 4, 5, 6
	p.BiasH[0], p.BiasH[1] = 7, 8
	p.BiasO[0], p.BiasO[1] = 9, 10
	require.NoError(t, s.Save(p))

	w, err := os.ReadFile(s.W)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n7\n8\n", string(w))
	v, err := os.ReadFile(s.V)
	require.NoError(t, err)
	assert.Equal(t, "3\n4\n5\n6\n9\n10\n", string(v))
}

func TestDecodeTruncated(t *testing.T) {
	conf := nn.Config{Inputs: 100, Hidden: 18, Outputs: 10}
	p := nn.New(conf)
	err := Decode(strings.NewReader("0.1\n0.2\n0.3\n"), p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTruncated), "%v", err)
	assert.Contains(t, err.Error(), "read 3 of 1980 values")
	assert.Equal(t, float32(0), p.W()[0][0], "parameters must not be touched by a failed load")

	err = Decode(strings.NewReader(""), p)
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestDecodeMalformed(t *testing.T) {
	conf := nn.Config{Inputs: 1, Hidden: 1, Outputs: 2}
	for _, in := range []string{
		"0.1\nabc\n0.3\n",
		"0.1\n\n0.3\n",
		"0.1\nNaN\n0.3\n",
		"0.1\n+Inf\n0.3\n",
	} {
		err := Decode(strings.NewReader(in), nn.New(conf))
		assert.True(t, errors.Is(err, ErrFormat), "%q: %v", in, err)
		assert.Contains(t, err.Error(), "line 2")
	}
}

func TestDecodeLenient(t *testing.T) {
	conf := nn.Config{Inputs: 1, Hidden: 1, Outputs: 2}
	p := nn.New(conf)
	// comma decimals, surrounding whitespace, CRLF endings and trailing lines are accepted
	require.NoError(t, Decode(strings.NewReader("0,5\r\n  -1.25 \n3\nextra\n"), p))
	assert.Equal(t, float32(0.5), p.W()[0][0])
	assert.Equal(t, float32(-1.25), p.V()[0][0])
	assert.Equal(t, float32(3), p.V()[0][1])
}

func TestLoadMissing(t *testing.T) {
	dir := t.TempDir()
	p := nn.New(nn.DefaultConf(10, 10))

	err := File(filepath.Join(dir, "nope.txt")).Load(p)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "%v", err)

	err = Pair{W: filepath.Join(dir, "W.txt"), V: filepath.Join(dir, "V.txt")}.Load(p)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "%v", err)

	err = new(Memory).Load(p)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "%v", err)
}

func TestPairLoadIsAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	s := Pair{W: filepath.Join(dir, "W.txt"), V: filepath.Join(dir, "V.txt")}
	conf := nn.Config{Inputs: 2, Hidden: 2, Outputs: 2}
	require.NoError(t, s.Save(randomParams(conf, 1)))
	require.NoError(t, os.WriteFile(s.V, []byte("1\n"), 0644))

	p := nn.New(conf)
	err := s.Load(p)
	assert.True(t, errors.Is(err, ErrTruncated))
	assert.Contains(t, err.Error(), s.V)
	assert.Equal(t, [][]float32{{0, 0}, {0, 0}}, p.W())
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f := File(filepath.Join(dir, "weights.txt"))
	require.NoError(t, f.Save(randomParams(nn.DefaultConf(4, 4), 3)))
	require.NoError(t, f.Save(randomParams(nn.DefaultConf(4, 4), 4)))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPairSaveIsAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	conf := nn.Config{Inputs: 2, Hidden: 2, Outputs: 2}
	old := randomParams(conf, 1)
	s := Pair{W: filepath.Join(dir, "W.txt"), V: filepath.Join(dir, "V.txt")}
	require.NoError(t, s.Save(old))
	before, err := os.ReadFile(s.W)
	require.NoError(t, err)

	// V cannot be written, so W must not be replaced either
	broken := Pair{W: s.W, V: filepath.Join(dir, "missing", "V.txt")}
	assert.Error(t, broken.Save(randomParams(conf, 2)))

	after, err := os.ReadFile(s.W)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	got := nn.New(conf)
	require.NoError(t, s.Load(got))
	assertSameParams(t, old, got)
}
